package machine

import "math/big"

// Int is Rho's arbitrary-precision integer value. It wraps math/big.Int,
// the stdlib's arbitrary-precision arithmetic, treated here as the opaque
// numeric collaborator the language core sits on top of rather than
// implements: add/sub/mul/div/pow/mod/compare/base-10 conversion are all
// the core needs, and math/big already provides every one of them
// correctly and efficiently. There is no third-party bignum/decimal
// library anywhere in the retrieved corpus, and the core's job is to
// treat this type as a black box, not to enrich it.
type Int struct {
	v *big.Int
}

func NewIntFromInt64(n int64) Int { return Int{v: big.NewInt(n)} }

func NewIntFromString(s string, base int) (Int, bool) {
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return Int{}, false
	}
	return Int{v: v}, true
}

func (i Int) String() string { return i.v.String() }
func (Int) Type() string     { return "int" }

func (i Int) Add(j Int) Int { return Int{v: new(big.Int).Add(i.v, j.v)} }
func (i Int) Sub(j Int) Int { return Int{v: new(big.Int).Sub(i.v, j.v)} }
func (i Int) Mul(j Int) Int { return Int{v: new(big.Int).Mul(i.v, j.v)} }

func (i Int) Div(j Int) (Int, error) {
	if j.v.Sign() == 0 {
		return Int{}, ErrDivByZero
	}
	return Int{v: new(big.Int).Quo(i.v, j.v)}, nil
}

func (i Int) Mod(j Int) (Int, error) {
	if j.v.Sign() == 0 {
		return Int{}, ErrDivByZero
	}
	return Int{v: new(big.Int).Mod(i.v, j.v)}, nil
}

func (i Int) Pow(j Int) Int {
	return Int{v: new(big.Int).Exp(i.v, j.v, nil)}
}

func (i Int) Neg() Int { return Int{v: new(big.Int).Neg(i.v)} }

func (i Int) Cmp(j Int) int { return i.v.Cmp(j.v) }

func (i Int) Float64() float64 {
	f, _ := new(big.Float).SetInt(i.v).Float64()
	return f
}

// Decimal is Rho's arbitrary-precision decimal value, used within a
// precision micro-frame (spec §3 "Precision micro-frames"). It wraps
// math/big.Float configured to the ambient micro-frame's bit precision,
// the same opaque-collaborator rationale as Int.
type Decimal struct {
	v *big.Float
}

func NewDecimalFromFloat64(f float64, prec uint) Decimal {
	return Decimal{v: new(big.Float).SetPrec(prec).SetFloat64(f)}
}

func (d Decimal) String() string { return d.v.Text('g', -1) }
func (Decimal) Type() string     { return "decimal" }

func (d Decimal) Neg() Decimal          { return Decimal{v: new(big.Float).Neg(d.v)} }
func (d Decimal) Add(e Decimal) Decimal { return Decimal{v: new(big.Float).Add(d.v, e.v)} }
func (d Decimal) Sub(e Decimal) Decimal { return Decimal{v: new(big.Float).Sub(d.v, e.v)} }
func (d Decimal) Mul(e Decimal) Decimal { return Decimal{v: new(big.Float).Mul(d.v, e.v)} }
func (d Decimal) Div(e Decimal) Decimal { return Decimal{v: new(big.Float).Quo(d.v, e.v)} }
func (d Decimal) Cmp(e Decimal) int     { return d.v.Cmp(e.v) }
