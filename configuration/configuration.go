package configuration

// Configuration is read with github.com/fulldump/goconfig, which
// fills it from environment variables and flags named after the
// field, using the `usage` tag as help text — same shape as the
// teacher's configuration.Configuration.
type Configuration struct {
	HttpAddr      string `usage:"HTTP address"`
	BlockCapacity int    `usage:"tuple slots per allocated block"`
	Version       bool   `usage:"show version and exit"`
	ShowBanner    bool   `usage:"show big banner"`
	ShowConfig    bool   `usage:"print config"`
}

func Default() Configuration {
	return Configuration{
		HttpAddr:      ":8080",
		BlockCapacity: 64,
	}
}
