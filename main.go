//	@title			Catalog API
//	@version		1.0
//	@description	Validates, stores and serves software catalog entities
//	@termsOfService	https://github.com/compozy/catalog

//	@license.name	MIT
//	@license.url	https://github.com/compozy/catalog/blob/main/LICENSE

//	@BasePath	/api/v0

//	@tag.name			entities
//	@tag.description	Entity validation and storage

//	@tag.name			Operations
//	@tag.description	Operational endpoints for monitoring and health

package main

import (
	"os"

	"github.com/compozy/catalog/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
