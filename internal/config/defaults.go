package config

// Basedir layout.
const (
	FileName  = "master.toml"
	PIDFile   = "master.pid"
	LockFile  = "master.lock"
	StateFile = "state.db"
	LogFile   = "master.log"
)

// Application is the marker value an installation's master.toml must carry.
const Application = "buildmaster"

const (
	defaultJobDir       = "jobdir"
	defaultPollInterval = 5
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns the configuration used for keys master.toml leaves out.
func Default() Config {
	return Config{
		Spool: Spool{
			JobDir:       defaultJobDir,
			PollInterval: defaultPollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
