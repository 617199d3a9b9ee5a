package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/Geodev122/cogniflow-sub002/internal/business"
	"github.com/Geodev122/cogniflow-sub002/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Auth Manager Housekeeping job",
		"Auth Manager Housekeeping job evicts cached profiles whose backing records were removed.",
		buildInfo,
		cmdutils.RunAsService,
		business.HousekeeperMain,
	)
}
