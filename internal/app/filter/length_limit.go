package filter

import (
	"context"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// LengthLimitConfig represents the configuration for LengthLimitFilter.
type LengthLimitConfig struct {
	MinLength int `yaml:"min_length" mapstructure:"min_length" validate:"gte=0"`
	MaxLength int `yaml:"max_length" mapstructure:"max_length" default:"500" validate:"gte=1"`
}

// LengthLimitFilter checks if segment length is within allowed limits.
// Lengths are counted in runes, not bytes, so Japanese text is not
// penalized for its UTF-8 width.
type LengthLimitFilter struct {
	config *LengthLimitConfig
}

// NewLengthLimitFilter creates a new length limit filter.
func NewLengthLimitFilter() *LengthLimitFilter {
	return &LengthLimitFilter{}
}

func (f *LengthLimitFilter) Name() string {
	return "length_limit_filter"
}

func (f *LengthLimitFilter) Description() string {
	return "Checks if segment length is within allowed limits"
}

func (f *LengthLimitFilter) ReturnCodes() []string {
	return []string{"length_limit_exceeded"}
}

func (f *LengthLimitFilter) ValidateConfig(settings map[string]any) error {
	var config LengthLimitConfig

	// Decode map[string]any to struct using mapstructure
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	// Set defaults
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}

	// Validate using validator
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	// Custom validation: min_length cannot be greater than max_length
	if config.MinLength > config.MaxLength {
		return errors.New("min_length cannot be greater than max_length")
	}

	f.config = &config
	zlog.Info().Msgf("length limit filter config: %+v", config)
	return nil
}

func (f *LengthLimitFilter) Check(ctx context.Context, seg Segment) Result {
	// If config is not set, accept all segments
	if f.config == nil {
		return Accept()
	}

	length := utf8.RuneCountInString(seg.Text)

	if length < f.config.MinLength {
		return Reject("length_limit_exceeded")
	}
	if length > f.config.MaxLength {
		return Reject("length_limit_exceeded")
	}

	return Accept()
}

func init() {
	Register("length_limit_filter", func() Filter {
		return &LengthLimitFilter{}
	})
}
