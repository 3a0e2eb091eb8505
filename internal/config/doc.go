// Package config persists the bridge settings and service preferences.
//
// Settings live in a YAML file in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/serlink/settings.yaml or $HOME/.config/serlink/settings.yaml
//   - macOS: $HOME/.config/serlink/settings.yaml
//   - Windows: %LOCALAPPDATA%\serlink\settings.yaml
//
// # Usage
//
//	store, err := config.Open("")
//	if err != nil {
//	    return err
//	}
//
//	snap, warnings, err := store.Update("cli", 4, func(s *settings.Snapshot) error {
//	    s.IP = "10.0.0.20"
//	    return nil
//	})
//
// # Consistency
//
// Update validates the candidate snapshot and writes it with a tmp+rename
// before it becomes visible through Snapshot or Subscribe. Readers always
// receive copies.
package config
