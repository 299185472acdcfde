package engine

import "github.com/alejandrodnm/backsim/config"

// Mod is an optional plug-in started before the simulation and torn
// down after it. Mods are assembled at build time as an ordered list —
// no dynamic loading.
type Mod interface {
	StartUp(t *Trader, cfg *config.Config) error
	TearDown() error
}

// startMods starts every mod in order; on failure the already started
// ones are torn down in reverse.
func startMods(mods []Mod, t *Trader, cfg *config.Config) error {
	for i, m := range mods {
		if err := m.StartUp(t, cfg); err != nil {
			tearDownMods(mods[:i])
			return err
		}
	}
	return nil
}

// tearDownMods tears mods down in reverse start order.
func tearDownMods(mods []Mod) {
	for i := len(mods) - 1; i >= 0; i-- {
		_ = mods[i].TearDown()
	}
}
