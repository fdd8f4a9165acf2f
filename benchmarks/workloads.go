package benchmarks

import (
	"math/rand"

	"github.com/sarchlab/csim/trace"
)

// GetWorkloads returns the standard set of synthetic workloads. Each one
// targets a specific cache characteristic.
func GetWorkloads() []Workload {
	return []Workload{
		sequentialScan(),
		stridedScan(),
		pingPong(),
		matrixTranspose(),
		modifyInPlace(),
		randomAccess(),
	}
}

// 1. Sequential Scan - spatial locality, one miss per block
func sequentialScan() Workload {
	return Workload{
		Name:        "sequential_scan",
		Description: "4 KiB read twice in 8-byte steps - measures spatial locality",
		Generate: func() []trace.Record {
			var records []trace.Record
			for pass := 0; pass < 2; pass++ {
				for addr := uint64(0); addr < 4096; addr += 8 {
					records = append(records, load(0x10000+addr, 8))
				}
			}
			return records
		},
	}
}

// 2. Strided Scan - one access per 1 KiB, every access maps to few sets
func stridedScan() Workload {
	return Workload{
		Name:        "strided_scan",
		Description: "16 addresses 1 KiB apart, read 8 times - stresses associativity",
		Generate: func() []trace.Record {
			var records []trace.Record
			for pass := 0; pass < 8; pass++ {
				for i := uint64(0); i < 16; i++ {
					records = append(records, load(0x20000+i*1024, 4))
				}
			}
			return records
		},
	}
}

// 3. Ping Pong - two blocks 64 KiB apart share a set whenever s+b <= 16
func pingPong() Workload {
	return Workload{
		Name:        "ping_pong",
		Description: "two aliasing blocks accessed alternately - LRU thrashing in direct-mapped caches",
		Generate: func() []trace.Record {
			var records []trace.Record
			for i := 0; i < 256; i++ {
				records = append(records, load(0x40000, 8), store(0x40000+1<<16, 8))
			}
			return records
		},
	}
}

// 4. Matrix Transpose - row-major reads, column-major writes of a 32x32 int
// matrix, the classic cache lab kernel
func matrixTranspose() Workload {
	const n = 32
	const a, b = uint64(0x100000), uint64(0x140000)

	return Workload{
		Name:        "matrix_transpose",
		Description: "naive 32x32 int transpose - conflict misses between two arrays",
		Generate: func() []trace.Record {
			records := make([]trace.Record, 0, 2*n*n)
			for i := uint64(0); i < n; i++ {
				for j := uint64(0); j < n; j++ {
					records = append(records,
						load(a+(i*n+j)*4, 4),
						store(b+(j*n+i)*4, 4))
				}
			}
			return records
		},
	}
}

// 5. Modify In Place - read-modify-write of an array
func modifyInPlace() Workload {
	return Workload{
		Name:        "modify_in_place",
		Description: "increment every element of a 1 KiB array twice - M records",
		Generate: func() []trace.Record {
			var records []trace.Record
			for pass := 0; pass < 2; pass++ {
				for addr := uint64(0); addr < 1024; addr += 4 {
					records = append(records, trace.Record{Kind: trace.Modify, Address: 0x60000 + addr, Size: 4})
				}
			}
			return records
		},
	}
}

// 6. Random Access - uniform over 64 KiB with a fixed seed
func randomAccess() Workload {
	return Workload{
		Name:        "random_access",
		Description: "4096 uniform loads over 64 KiB (seeded) - capacity misses",
		Generate: func() []trace.Record {
			rng := rand.New(rand.NewSource(42))
			records := make([]trace.Record, 0, 4096)
			for i := 0; i < 4096; i++ {
				records = append(records, load(0x80000+uint64(rng.Intn(1<<16))&^7, 8))
			}
			return records
		},
	}
}

func load(addr uint64, size uint32) trace.Record {
	return trace.Record{Kind: trace.Load, Address: addr, Size: size}
}

func store(addr uint64, size uint32) trace.Record {
	return trace.Record{Kind: trace.Store, Address: addr, Size: size}
}
