package conf

var (
	BuiltAt   string = "unknown"
	GitCommit string = "unknown"
	Version   string = "dev"
)

// Conf is the process-wide loaded configuration, set by
// initialize.InitConfig before any server starts.
var Conf *Config
