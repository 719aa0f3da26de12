package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `mapstructure:"enabled"`
	UseConsoleWriter bool `mapstructure:"useConsoleWriter"`
}

// RollingFile configures one lumberjack rolled log file.
type RollingFile struct {
	Name       string `mapstructure:"name"`
	MaxSize    int    `mapstructure:"maxSize"` // megabytes
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"` // days
	Compress   bool   `mapstructure:"compress"`
}

// LogFile implements a file based logger, one file per level group.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	Access RollingFile `mapstructure:"access"`
	Error  RollingFile `mapstructure:"error"`
	Info   RollingFile `mapstructure:"info"`
	Trace  RollingFile `mapstructure:"trace"`
	Warn   RollingFile `mapstructure:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `mapstructure:"logLevel"` // trace, debug, info, warn, error.

	// EnableAccessLogToConsole if true the webserver access log is written to the console.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool `mapstructure:"enableAccessLogToConsole"`
	ReportCaller             bool `mapstructure:"reportCaller"`
	DisableCheckAlive        bool `mapstructure:"disableCheckAlive"` // do not log /checkalive calls

	AppName     string `mapstructure:"appName"`
	ServiceName string `mapstructure:"serviceName"`

	// Console used mainly for docker and dev.
	Console Console `mapstructure:"console"`

	File LogFile `mapstructure:"file"`

	// SQL enables the gorm statement log at debug level.
	SQL bool `mapstructure:"sql"`
}
