package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	DataDir           string
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Run mode
	Serve  bool
	Source string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
