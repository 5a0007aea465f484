package main

import (
	"fmt"
	"os"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/cli"
	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

// @title GitHub Activity Mirror API
// @version 1.0
// @description Status and control API for the GitHub activity mirror
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	if err := cli.Execute(cli.NewRootCommand()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
