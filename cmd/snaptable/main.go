package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/snaptable/bootstrap"
	"github.com/fulldump/snaptable/configuration"
)

var VERSION = "dev"

var banner = `
 _____                   _        _     _
/  ___|                 | |      | |   | |
\ '--. _ __   __ _ _ __ | |_ __ _| |__ | | ___
 '--. \ '_ \ / _' | '_ \| __/ _' | '_ \| |/ _ \
/\__/ / | | | (_| | |_) | || (_| | |_) | |  __/
\____/|_| |_|\__,_| .__/ \__\__,_|_.__/|_|\___|
                   | |              version ` + VERSION + `
                   |_|
`

func main() {

	c := configuration.Default()
	goconfig.Read(&c)

	if c.Version {
		fmt.Println("Version:", VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		e.Encode(c)
	}

	bootstrap.VERSION = VERSION
	start, _ := bootstrap.Bootstrap(&c)

	start()
}
