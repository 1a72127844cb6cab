package wiki

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/launcher"
)

// DriverKind is the explicit choice of page driver. The probe picks one
// at startup rather than swapping implementations on error mid-run.
type DriverKind int

const (
	DriverRod DriverKind = iota
	DriverSimulated
)

func (k DriverKind) String() string {
	switch k {
	case DriverRod:
		return "rod"
	case DriverSimulated:
		return "simulated"
	}
	return fmt.Sprintf("DriverKind(%d)", int(k))
}

// Detect probes for a usable browser binary. It does not launch one;
// launch failures are still possible later and surface as
// DriverInitError, which the orchestrator handles by substitution.
func Detect() DriverKind {
	path, found := launcher.LookPath()
	if !found {
		slog.Warn("no browser binary found, scraping will be simulated")
		return DriverSimulated
	}
	slog.Info("browser binary detected", "path", path)
	return DriverRod
}

// New constructs the fetcher for the given kind.
func New(kind DriverKind, cfg Config) (PageFetcher, error) {
	switch kind {
	case DriverRod:
		return NewRodFetcher(cfg)
	case DriverSimulated:
		return NewSimulatedFetcher(cfg), nil
	}
	return nil, fmt.Errorf("unknown driver kind %d", int(kind))
}
