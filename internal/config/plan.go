package config

import "fmt"

// PlanEntry is one node the configuration creates
type PlanEntry struct {
	Name     string `yaml:"name"`
	Role     string `yaml:"role"`
	Master   string `yaml:"master,omitempty"`
	BaudRate int    `yaml:"baudrate"`
	Writer   bool   `yaml:"writer,omitempty"`
}

// Plan lists the nodes c creates, in the order the daemon connects them:
// each master followed by its virtuals.
func (c *Config) Plan() ([]PlanEntry, error) {
	var plan []PlanEntry
	for _, m := range c.Masters {
		plan = append(plan, PlanEntry{
			Name:     m.Device,
			Role:     "master",
			BaudRate: m.BaudRate,
		})
		for i, vc := range m.Virtuals {
			name, err := vc.ResolveName(m.Device)
			if err != nil {
				return nil, fmt.Errorf("%s: virtuals[%d]: %w", m.Device, i, err)
			}
			plan = append(plan, PlanEntry{
				Name:     name,
				Role:     "virtual",
				Master:   m.Device,
				BaudRate: vc.ResolveBaudRate(m.BaudRate),
				Writer:   vc.Writer,
			})
		}
	}
	return plan, nil
}

// Virtuals returns the virtual names configured for device, or nil if
// device is not a configured master.
func (c *Config) Virtuals(device string) []string {
	for _, m := range c.Masters {
		if m.Device != device {
			continue
		}
		names := make([]string, 0, len(m.Virtuals))
		for _, vc := range m.Virtuals {
			if name, err := vc.ResolveName(m.Device); err == nil {
				names = append(names, name)
			}
		}
		return names
	}
	return nil
}
