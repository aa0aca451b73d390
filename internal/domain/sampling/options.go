package sampling

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithRule sets the sampling rule. Unknown rules are rejected by New.
func WithRule(rule Rule) Option {
	return func(s *Sampler) {
		if rule != "" {
			s.rule = rule
		}
	}
}

// WithSeed pins the generator seed.
func WithSeed(seed uint64) Option {
	return func(s *Sampler) {
		s.seed = seed
	}
}
