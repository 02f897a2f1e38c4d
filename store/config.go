package store

// Config holds configuration for the DynamoDB store.
type Config struct {
	// CounterTable is the name of the sequence counter table.
	// Default: "arbor_counters"
	CounterTable string

	// Indexes maps indexed field names to the GSI that serves them.
	// Every entity table carries the same index names. Defaults:
	//   display_id -> by_display_id
	//   name       -> by_name
	//   email      -> by_email
	Indexes map[string]string

	// PullAttempts bounds the optimistic-lock retry loop in Pull.
	// Default: 5
	PullAttempts int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CounterTable: "arbor_counters",
		Indexes: map[string]string{
			"display_id": "by_display_id",
			"name":       "by_name",
			"email":      "by_email",
		},
		PullAttempts: 5,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.CounterTable == "" {
		c.CounterTable = "arbor_counters"
	}
	if c.Indexes == nil {
		c.Indexes = DefaultConfig().Indexes
	}
	if c.PullAttempts < 1 {
		c.PullAttempts = 5
	}
}
