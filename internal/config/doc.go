// Package config loads route manifests for the routekit CLI.
//
// A manifest is a YAML (or JSON) file, routes.yaml by default, holding
// router settings and a route table. This package handles loading,
// environment overrides, validation, building a router and watching the
// file for changes.
//
// # Manifest Structure
//
//	router:
//	  backend: tree        # or chi
//	  maxCacheSize: 1000   # 0 disables the match cache
//	server:
//	  addr: ":8080"
//	  reloadDebounce: 100ms
//	routes:
//	  - method: GET
//	    pattern: /users/:id
//	    handler: users.show
//	  - methods: [GET, HEAD]
//	    pattern: /static/*filepath
//
// # Environment
//
// Settings can be overridden with ROUTEKIT_ROUTER_BACKEND,
// ROUTEKIT_ROUTER_MAX_CACHE_SIZE, ROUTEKIT_SERVER_ADDR and
// ROUTEKIT_SERVER_RELOAD_DEBOUNCE.
//
// # Usage
//
//	m, err := config.Open("routes.yaml")
//	if err != nil {
//	    errors.PrintError(os.Stderr, err)
//	    os.Exit(1)
//	}
//	r, err := m.Build()
package config
