package sign

import "github.com/lestrrat-go/option"

type Option = option.Interface

// SignOption configures Sign.
type SignOption interface {
	Option
	signOption()
}

// VerifyOption configures Verify.
type VerifyOption interface {
	Option
	verifyOption()
}

// SignVerifyOption can be passed to both Sign and Verify.
type SignVerifyOption interface {
	SignOption
	VerifyOption
}

type signVerifyOption struct {
	Option
}

func (signVerifyOption) signOption()   {}
func (signVerifyOption) verifyOption() {}

type identAlgorithm struct{}

func (identAlgorithm) String() string { return "WithAlgorithm" }

// WithAlgorithm selects the signature algorithm. Both sides of an exchange
// must agree on it; the default is RS256.
func WithAlgorithm(alg Algorithm) SignVerifyOption {
	return signVerifyOption{option.New(identAlgorithm{}, alg)}
}
