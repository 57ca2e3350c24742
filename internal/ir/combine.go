package ir

// Op names the built-in operators of the expression language.
type Op string

const (
	OpAdd       Op = "add"
	OpMul       Op = "mul"
	OpNeg       Op = "neg"
	OpTranspose Op = "transpose"
	OpSum       Op = "sum"
)

// Props are the inferred properties cached on every expression node.
type Props struct {
	Shape     Shape
	Sign      Sign
	Curvature Curvature
}

// Combine infers the properties of op applied to operands. Shape is checked
// first; sign and curvature are only combined for valid shapes.
func Combine(op Op, operands ...Props) (Props, error) {
	shapes := make([]Shape, len(operands))
	for i, o := range operands {
		shapes[i] = o.Shape
	}
	shape, err := CombineShape(op, shapes...)
	if err != nil {
		return Props{}, err
	}
	return Props{
		Shape:     shape,
		Sign:      CombineSign(op, operands...),
		Curvature: CombineCurvature(op, operands...),
	}, nil
}

// CombineShape infers the result shape of op, or fails with SHAPE_MISMATCH.
func CombineShape(op Op, shapes ...Shape) (Shape, error) {
	switch op {
	case OpAdd:
		if len(shapes) == 0 {
			return Shape{}, ShapeMismatch(op)
		}
		result := shapes[0]
		for _, s := range shapes[1:] {
			b, ok := Broadcast(result, s)
			if !ok {
				return Shape{}, ShapeMismatch(op, shapes...)
			}
			result = b
		}
		return result, nil
	case OpMul:
		if len(shapes) != 2 {
			return Shape{}, ShapeMismatch(op, shapes...)
		}
		return mulShape(shapes[0], shapes[1])
	case OpNeg:
		if len(shapes) != 1 {
			return Shape{}, ShapeMismatch(op, shapes...)
		}
		return shapes[0], nil
	case OpTranspose:
		if len(shapes) != 1 {
			return Shape{}, ShapeMismatch(op, shapes...)
		}
		s := shapes[0]
		return NewShape(s.Cols(), s.Rows()), nil
	case OpSum:
		if len(shapes) != 1 {
			return Shape{}, ShapeMismatch(op, shapes...)
		}
		return Scalar(), nil
	}
	return Shape{}, Errorf(CodeShapeMismatch, "unknown operator %q", op)
}

// mulShape implements matrix multiplication with scalar scaling.
func mulShape(a, b Shape) (Shape, error) {
	switch {
	case a.IsScalar():
		return b, nil
	case b.IsScalar():
		return a, nil
	}
	if !a.Cols().Equal(b.Rows()) {
		return Shape{}, ShapeMismatch(OpMul, a, b)
	}
	return NewShape(a.Rows(), b.Cols()), nil
}

// CombineSign infers the result sign of op.
func CombineSign(op Op, operands ...Props) Sign {
	if len(operands) == 0 {
		return Neither
	}
	switch op {
	case OpAdd:
		s := operands[0].Sign
		for _, o := range operands[1:] {
			s = s.Add(o.Sign)
		}
		return s
	case OpMul:
		s := operands[0].Sign
		for _, o := range operands[1:] {
			s = s.Mul(o.Sign)
		}
		return s
	case OpNeg:
		return operands[0].Sign.Neg()
	case OpTranspose, OpSum:
		return operands[0].Sign
	}
	return Neither
}

// CombineCurvature infers the result curvature of op. Multiplication is
// only DCP when at least one factor is constant; the other factor's
// curvature is then scaled by the constant's sign.
func CombineCurvature(op Op, operands ...Props) Curvature {
	if len(operands) == 0 {
		return Constant
	}
	switch op {
	case OpAdd:
		c := operands[0].Curvature
		for _, o := range operands[1:] {
			c = c.Add(o.Curvature)
		}
		return c
	case OpMul:
		if len(operands) != 2 {
			return Nonconvex
		}
		l, r := operands[0], operands[1]
		switch {
		case l.Curvature.IsConstant() && r.Curvature.IsConstant():
			return Constant
		case l.Curvature.IsConstant():
			return r.Curvature.Scale(l.Sign)
		case r.Curvature.IsConstant():
			return l.Curvature.Scale(r.Sign)
		}
		return Nonconvex
	case OpNeg:
		return operands[0].Curvature.Neg()
	case OpTranspose, OpSum:
		return operands[0].Curvature
	}
	return Nonconvex
}
