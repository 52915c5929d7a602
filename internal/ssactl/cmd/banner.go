package cmd

import (
	"fmt"

	"github.com/kiosk404/sankhya-agent/pkg/version"
)

const bannerText = `
  ____              _    _           
 / ___|  __ _ _ __ | | _| |__  _   _  __ _ 
 \___ \ / _' | '_ \| |/ / '_ \| | | |/ _' |
  ___) | (_| | | | |   <| | | | |_| | (_| |
 |____/ \__,_|_| |_|_|\_\_| |_|\__, |\__,_|
                               |___/      

        Sankhya ERP Agent
`

// Banner returns the CLI banner string.
func Banner() string {
	return fmt.Sprintf("%s\n  Version: %s\n", bannerText, version.Get().GitVersion)
}
