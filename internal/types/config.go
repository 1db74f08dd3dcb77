package types

// Config represents the application configuration
type Config struct {
	Input struct {
		Paths  []string `yaml:"paths"`
		Format string   `yaml:"format"` // kv, csv
		Strict bool     `yaml:"strict"` // abort the batch on the first malformed line
	} `yaml:"input"`

	Detection struct {
		BruteForceThreshold *int     `yaml:"brute_force_threshold"` // nil means default
		BruteForceWindow    string   `yaml:"brute_force_window"` // e.g. "10m", empty disables
		MultiHostThreshold  *int     `yaml:"multi_host_threshold"`
		OffHours            []int    `yaml:"off_hours"`
		BadPatterns         []string `yaml:"bad_patterns"`
		PrivilegedPatterns  []string `yaml:"privileged_patterns"`
		Allowlist           []string `yaml:"allowlist"` // never flagged by name heuristics
		Shards              int      `yaml:"shards"`

		Explain        bool   `yaml:"explain"`
		EnableLocalLLM bool   `yaml:"enable_local_llm"`
		LocalLLMUrl    string `yaml:"local_llm_url"`
		LocalLLMModel  string `yaml:"local_llm_model"`
	} `yaml:"detection"`

	Notification struct {
		MinRisk        RiskLevel `yaml:"min_risk"`
		DiscordWebhook string    `yaml:"discord_webhook"`
		Splunk         struct {
			Enabled  bool   `yaml:"enabled"`
			URL      string `yaml:"url"` // https://splunk:8088/services/collector/event
			Token    string `yaml:"token"`
			Index    string `yaml:"index"`
			Insecure bool   `yaml:"insecure"` // skip TLS verification for self-signed lab instances
		} `yaml:"splunk"`
	} `yaml:"notification"`

	Dashboard struct {
		Port string `yaml:"port"`
	} `yaml:"dashboard"`

	Output struct {
		AuditLogPath string `yaml:"audit_log_path"`
		DBPath       string `yaml:"db_path"`
		ReportType   string `yaml:"report_type"` // security, technical
	} `yaml:"output"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json, console
	} `yaml:"log"`
}
