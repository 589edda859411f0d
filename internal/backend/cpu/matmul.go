package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// MatMul multiplies the last two axes of a and b.
//
//	2-D:      [M, K] @ [K, N]             -> [M, N]
//	batched:  [..., M, K] @ [..., K, N]   -> [..., M, N]
//	transB:   [..., M, K] @ [..., N, K]^T -> [..., M, N]
//
// Leading (batch) axes must match exactly. Each matrix product is one SGEMM call;
// batches run concurrently.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor, transB bool) *tensor.RawTensor {
	as, bs := a.Shape(), b.Shape()
	rank := len(as)
	if rank < 2 || len(bs) != rank {
		panic(fmt.Sprintf("matmul: operands must have equal rank >= 2, got %v and %v", as, bs))
	}
	for i := 0; i < rank-2; i++ {
		if as[i] != bs[i] {
			panic(fmt.Sprintf("matmul: batch dimension mismatch at axis %d: %v vs %v", i, as, bs))
		}
	}

	m, k := as[rank-2], as[rank-1]
	kb, n := bs[rank-2], bs[rank-1]
	if transB {
		kb, n = n, kb
	}
	if k != kb {
		panic(fmt.Sprintf("matmul: inner dimension mismatch %v @ %v (transB=%t)", as, bs, transB))
	}

	outShape := append(as[:rank-2].Clone(), m, n)
	out := tensor.MustRaw(outShape)
	batches := outShape.NumElements() / (m * n)

	if batches == 1 && cpu.acc != nil && m*k*n >= cpu.accMinWork {
		if c, err := cpu.acc.MatMul(a.Data(), b.Data(), m, k, n, transB); err == nil {
			copy(out.Data(), c)
			return out
		}
	}

	ad, bd, od := a.Data(), b.Data(), out.Data()
	parallel.For(batches, cpu.par, func(i int) {
		gemm(
			ad[i*m*k:(i+1)*m*k],
			bd[i*k*n:(i+1)*k*n],
			od[i*m*n:(i+1)*m*n],
			m, k, n, transB,
		)
	})
	return out
}

// gemm computes c = a @ b (or a @ b^T) for row-major matrices.
func gemm(a, b, c []float32, m, k, n int, transB bool) {
	bm := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	tB := blas.NoTrans
	if transB {
		bm = blas32.General{Rows: n, Cols: k, Stride: k, Data: b}
		tB = blas.Trans
	}
	blas32.Gemm(blas.NoTrans, tB, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		bm,
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c},
	)
}
