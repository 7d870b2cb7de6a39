package analysis

import (
	"fmt"
	"strings"

	"github.com/nvandessel/enstat/internal/errkind"
)

// Kind selects the per-voxel statistical model.
type Kind int

const (
	// GaussianSingle summarizes each voxel by one mean and deviation.
	GaussianSingle Kind = iota
	// GaussianMixture fits a Gaussian mixture to each voxel and keeps the
	// component count with the lowest AIC.
	GaussianMixture
)

var kindNames = map[Kind]string{
	GaussianSingle:  "gaussian_single",
	GaussianMixture: "gaussian_mixture",
}

// String returns the canonical lower-case name of k.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts the canonical name or the short aliases "single",
// "gaussian", "mixture" and "gmm", case-insensitively. Dashes and
// underscores are interchangeable.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "gaussian_single", "single", "gaussian":
		return GaussianSingle, nil
	case "gaussian_mixture", "mixture", "gmm":
		return GaussianMixture, nil
	}
	return 0, fmt.Errorf("unknown analysis kind %q (want gaussian_single or gaussian_mixture): %w", s, errkind.InvalidArgument)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("analysis kind %d: %w", int(k), errkind.InvalidArgument)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
