package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Build information, set by main from linker flags.
var (
	Version   string
	GitCommit string
	BuildDate string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if short, _ := cmd.Flags().GetBool("short"); short {
			fmt.Println(getVersion())
			return
		}

		title := color.New(color.FgCyan, color.Bold)
		label := color.New(color.FgGreen)

		title.Printf("fcasctl %s\n", getVersion())
		fmt.Println()
		rows := [][2]string{
			{"Git commit: ", orUnknown(GitCommit)},
			{"Built:      ", orUnknown(BuildDate)},
			{"Go version: ", runtime.Version()},
			{"OS/Arch:    ", runtime.GOOS + "/" + runtime.GOARCH},
		}
		for _, r := range rows {
			label.Print(r[0])
			fmt.Println(r[1])
		}
	},
}

func init() {
	versionCmd.Flags().Bool("short", false, "print the version only")
	rootCmd.AddCommand(versionCmd)
}

// getVersion falls back to the module version for go install builds.
func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// SetVersionInfo records build information from the main package.
func SetVersionInfo(version, gitCommit, buildDate string) {
	Version = version
	GitCommit = gitCommit
	BuildDate = buildDate
}
