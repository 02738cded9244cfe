package router

import (
	"fmt"
	"testing"
)

// BenchmarkRouterFindStatic benchmarks matching a static route.
func BenchmarkRouterFindStatic(b *testing.B) {
	for _, kind := range backends {
		b.Run(kind.String(), func(b *testing.B) {
			r := New(WithBackend(kind), WithMaxCacheSize(0))
			for _, p := range []string{"/", "/about", "/contact", "/pricing", "/features"} {
				r.MustAdd("GET", p, p)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				r.Find("GET", "/about")
			}
		})
	}
}

// BenchmarkRouterFindParams benchmarks matching multiple parameters.
func BenchmarkRouterFindParams(b *testing.B) {
	for _, kind := range backends {
		b.Run(kind.String(), func(b *testing.B) {
			r := New(WithBackend(kind), WithMaxCacheSize(0))
			r.MustAdd("GET", "/users/:userId/posts/:postId/comments/:commentId", "h")

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				r.Find("GET", "/users/42/posts/100/comments/999")
			}
		})
	}
}

// BenchmarkRouterFindCatchAll benchmarks matching a catch-all route.
func BenchmarkRouterFindCatchAll(b *testing.B) {
	r := New(WithMaxCacheSize(0))
	r.MustAdd("GET", "/files/*path", "h")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/files/docs/2024/report.pdf")
	}
}

// BenchmarkRouterFindCached benchmarks cache hits on a large table.
func BenchmarkRouterFindCached(b *testing.B) {
	r := New()
	for i := 0; i < 1000; i++ {
		r.MustAdd("GET", fmt.Sprintf("/api/v1/resource%d/:id", i), i)
	}
	r.Find("GET", "/api/v1/resource500/42")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/api/v1/resource500/42")
	}
}

// BenchmarkRouterFindManyRoutes benchmarks uncached lookups on a large table.
func BenchmarkRouterFindManyRoutes(b *testing.B) {
	r := New(WithMaxCacheSize(0))
	for i := 0; i < 1000; i++ {
		r.MustAdd("GET", fmt.Sprintf("/api/v1/resource%d/:id", i), i)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Find("GET", "/api/v1/resource999/42")
	}
}

// BenchmarkRouterFindParallel benchmarks concurrent cached lookups.
func BenchmarkRouterFindParallel(b *testing.B) {
	r := New()
	r.MustAdd("GET", "/users/:id", "h")

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.Find("GET", "/users/123")
		}
	})
}
