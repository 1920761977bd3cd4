package cache

import (
	"fmt"
	"math/rand"
	"testing"
)

// Helper function to create caches with error handling
func mustCreateCaches() (Cache[string], Cache[string]) {
	simple, err := NewSimple[string]()
	if err != nil {
		panic(err)
	}
	fifo, err := NewFIFO[string](1000)
	if err != nil {
		panic(err)
	}
	return simple, fifo
}

// BenchmarkCacheGet benchmarks cache Get operations across implementations.
func BenchmarkCacheGet(b *testing.B) {
	simple, fifo := mustCreateCaches()

	benchmarks := []struct {
		name  string
		cache Cache[string]
	}{
		{"Simple", simple},
		{"FIFO_1000", fifo},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			cache := bm.cache
			defer cache.Close()

			// Pre-populate cache
			for i := 0; i < 1000; i++ {
				_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
			}

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					key := fmt.Sprintf("key%d", rand.Intn(1000))
					cache.Get(key)
				}
			})
		})
	}
}

// BenchmarkCacheSet benchmarks cache Set operations across implementations.
func BenchmarkCacheSet(b *testing.B) {
	simple, fifo := mustCreateCaches()

	benchmarks := []struct {
		name  string
		cache Cache[string]
	}{
		{"Simple", simple},
		{"FIFO_1000", fifo},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			cache := bm.cache
			defer cache.Close()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 0
				for pb.Next() {
					key := fmt.Sprintf("key%d", i)
					value := fmt.Sprintf("value%d", i)
					_, _ = cache.Set(key, value)
					i++
				}
			})
		})
	}
}

// BenchmarkCacheMixed benchmarks mixed cache operations (Get/Set/Delete).
func BenchmarkCacheMixed(b *testing.B) {
	simple, fifo := mustCreateCaches()

	benchmarks := []struct {
		name  string
		cache Cache[string]
	}{
		{"Simple", simple},
		{"FIFO_1000", fifo},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			cache := bm.cache
			defer cache.Close()

			// Pre-populate cache
			for i := 0; i < 500; i++ {
				_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
			}

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				i := 500
				for pb.Next() {
					switch rand.Intn(5) {
					case 0, 1: // 40% reads
						key := fmt.Sprintf("key%d", rand.Intn(1000))
						cache.Get(key)
					case 2, 3: // 40% writes
						key := fmt.Sprintf("key%d", i)
						value := fmt.Sprintf("value%d", i)
						_, _ = cache.Set(key, value)
						i++
					case 4: // 20% deletes
						key := fmt.Sprintf("key%d", rand.Intn(1000))
						_, _ = cache.Delete(key)
					}
				}
			})
		})
	}
}

// BenchmarkFIFOEviction benchmarks eviction performance at different sizes.
func BenchmarkFIFOEviction(b *testing.B) {
	sizes := []int{100, 500, 1000, 5000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size_%d", size), func(b *testing.B) {
			cache, err := NewFIFO[string](size)
			if err != nil {
				b.Fatal(err)
			}
			defer cache.Close()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				key := fmt.Sprintf("key%d", i)
				value := fmt.Sprintf("value%d", i)
				_, _ = cache.Set(key, value)
			}
		})
	}
}
