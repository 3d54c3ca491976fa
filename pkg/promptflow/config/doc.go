/*
Package config reads promptflow settings files.

A Config wraps the decoded map[string]any of a YAML or JSON document.
Accessors take dotted keys that walk nested sections, and return the
supplied default when a key is missing or holds the wrong type:

	cfg, err := config.FromFile("promptflow.yaml")
	if err != nil {
	    return err
	}

	models := cfg.StringSlice("models", nil)
	budget := cfg.Int("retry.budget", 3)
	delay := cfg.Duration("retry.rate_limit_delay", 30*time.Second)

	llm := cfg.Section("llm")
	baseURL := llm.String("base_url", "https://api.openai.com/v1")

Durations accept Go duration strings ("30s", "1m30s") or numbers of
seconds. Integers accept whole floats, which is what JSON decodes to.

A Config is safe for concurrent reads. It never modifies the map it wraps.
*/
package config
