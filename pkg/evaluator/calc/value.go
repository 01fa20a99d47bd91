package calc

import (
	"fmt"
	"math"
	"strconv"

	"github.com/aretw0/ratlab/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Error kinds reported by the calculator.
const (
	kindSyntax    = "SyntaxError"
	kindName      = "NameError"
	kindType      = "TypeError"
	kindDimension = "DimensionError"
	kindMath      = "MathError"
)

// maxRangeLen caps the size of a:b so a typo cannot exhaust memory.
const maxRangeLen = 1 << 20

// Value is either a scalar or a dense matrix. A 1x1 matrix is always
// normalized to a scalar.
type Value struct {
	num float64
	m   *mat.Dense
}

// Scalar wraps a number.
func Scalar(f float64) Value {
	return Value{num: f}
}

// Matrix wraps a dense matrix.
func Matrix(m *mat.Dense) Value {
	if r, c := m.Dims(); r == 1 && c == 1 {
		return Scalar(m.At(0, 0))
	}
	return Value{m: m}
}

// IsMatrix reports whether v holds a matrix.
func (v Value) IsMatrix() bool { return v.m != nil }

// Float returns the scalar value; it is zero for matrices.
func (v Value) Float() float64 { return v.num }

// Dense returns the matrix, or nil for scalars.
func (v Value) Dense() *mat.Dense { return v.m }

func (v Value) String() string {
	if v.m == nil {
		return formatNumber(v.num)
	}
	return fmt.Sprintf("%v", mat.Formatted(v.m, mat.Squeeze()))
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == 0:
		return "0" // folds -0
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (v Value) dense() *mat.Dense {
	if v.m != nil {
		return v.m
	}
	return mat.NewDense(1, 1, []float64{v.num})
}

func shape(m mat.Matrix) string {
	r, c := m.Dims()
	return fmt.Sprintf("%dx%d", r, c)
}

func sameShape(a, b *mat.Dense) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

func add(a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Scalar(a.num + b.num), nil
	case !a.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot add a number to a matrix")
	case !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot add a matrix to a number")
	}
	if !sameShape(a.m, b.m) {
		return Value{}, domain.NewEvaluationError(kindDimension,
			"Matrix dimensions must agree (%s and %s)", shape(a.m), shape(b.m))
	}
	var out mat.Dense
	out.Add(a.m, b.m)
	return Matrix(&out), nil
}

func sub(a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Scalar(a.num - b.num), nil
	case !a.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot subtract a matrix from a number")
	case !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot subtract a number from a matrix")
	}
	if !sameShape(a.m, b.m) {
		return Value{}, domain.NewEvaluationError(kindDimension,
			"Matrix dimensions must agree (%s and %s)", shape(a.m), shape(b.m))
	}
	var out mat.Dense
	out.Sub(a.m, b.m)
	return Matrix(&out), nil
}

func mul(a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Scalar(a.num * b.num), nil
	case !a.IsMatrix():
		var out mat.Dense
		out.Scale(a.num, b.m)
		return Matrix(&out), nil
	case !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot multiply a matrix by a scalar")
	}
	return matMul(a.m, b.m)
}

func matMul(a, b mat.Matrix) (Value, error) {
	_, ac := a.Dims()
	br, _ := b.Dims()
	if ac != br {
		return Value{}, domain.NewEvaluationError(kindDimension,
			"Inner matrix dimensions must agree (%s and %s)", shape(a), shape(b))
	}
	var out mat.Dense
	out.Mul(a, b)
	return Matrix(&out), nil
}

func inverse(m *mat.Dense) (*mat.Dense, error) {
	if r, c := m.Dims(); r != c {
		return nil, domain.NewEvaluationError(kindDimension, "Cannot invert a non-square matrix (%s)", shape(m))
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, domain.NewEvaluationError(kindMath, "Could not invert matrix")
	}
	return &inv, nil
}

// div follows x / M = x * inv(M) and A / B = A * inv(B).
func div(a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Scalar(a.num / b.num), nil
	case a.IsMatrix() && !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot divide a matrix by a number")
	}
	inv, err := inverse(b.m)
	if err != nil {
		return Value{}, err
	}
	if !a.IsMatrix() {
		var out mat.Dense
		out.Scale(a.num, inv)
		return Matrix(&out), nil
	}
	return matMul(a.m, inv)
}

func pointwiseMul(a, b Value) (Value, error) {
	switch {
	case !a.IsMatrix() && !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot pointwise multiply two numbers")
	case !a.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot pointwise multiply a number by a matrix")
	case !b.IsMatrix():
		return Value{}, domain.NewEvaluationError(kindType, "Cannot pointwise multiply a matrix by a number")
	}
	if !sameShape(a.m, b.m) {
		return Value{}, domain.NewEvaluationError(kindDimension,
			"Matrix dimensions must agree (%s and %s)", shape(a.m), shape(b.m))
	}
	var out mat.Dense
	out.MulElem(a.m, b.m)
	return Matrix(&out), nil
}

func negate(v Value) Value {
	if !v.IsMatrix() {
		return Scalar(-v.num)
	}
	var out mat.Dense
	out.Scale(-1, v.m)
	return Matrix(&out)
}

// span builds the row vector from, from+1, ... up to and including to.
func span(from, to Value) (Value, error) {
	if from.IsMatrix() || to.IsMatrix() {
		return Value{}, domain.NewEvaluationError(kindType, "Range bounds must be numbers")
	}
	if math.IsNaN(from.num) || math.IsNaN(to.num) || math.IsInf(from.num, 0) || math.IsInf(to.num, 0) {
		return Value{}, domain.NewEvaluationError(kindMath, "Range bounds must be finite")
	}
	n := math.Floor(to.num-from.num) + 1
	if n < 1 {
		return Value{}, domain.NewEvaluationError(kindDimension,
			"Range %s:%s is empty", formatNumber(from.num), formatNumber(to.num))
	}
	if n > maxRangeLen {
		return Value{}, domain.NewEvaluationError(kindMath, "Range %s:%s is too large",
			formatNumber(from.num), formatNumber(to.num))
	}
	data := make([]float64, int(n))
	for i := range data {
		data[i] = from.num + float64(i)
	}
	return Matrix(mat.NewDense(1, len(data), data)), nil
}

// concat assembles a matrix literal: elements of a row are joined side by
// side, rows are stacked.
func concat(rows [][]Value) (Value, error) {
	if len(rows) == 0 {
		return Value{}, domain.NewEvaluationError(kindDimension, "Empty matrices are not supported")
	}

	var stacked *mat.Dense
	for _, row := range rows {
		var line *mat.Dense
		for _, el := range row {
			d := el.dense()
			if line == nil {
				line = mat.DenseCopyOf(d)
				continue
			}
			if lr, _ := line.Dims(); lr != rowsOf(d) {
				return Value{}, domain.NewEvaluationError(kindDimension,
					"Dimensions of concatenated elements are not consistent")
			}
			var joined mat.Dense
			joined.Augment(line, d)
			line = &joined
		}

		if stacked == nil {
			stacked = line
			continue
		}
		if _, sc := stacked.Dims(); sc != colsOf(line) {
			return Value{}, domain.NewEvaluationError(kindDimension, "Rows don't all have the same size")
		}
		var joined mat.Dense
		joined.Stack(stacked, line)
		stacked = &joined
	}
	return Matrix(stacked), nil
}

func rowsOf(m mat.Matrix) int {
	r, _ := m.Dims()
	return r
}

func colsOf(m mat.Matrix) int {
	_, c := m.Dims()
	return c
}
