package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wtuxedo/kubegather/pkg/k8sutil"
	"github.com/wtuxedo/kubegather/pkg/logger"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kubegather",
		Short: "Gather cluster diagnostics into a support bundle",
		Long: `Gather useful information for debugging issues raised by the support team:
pod listings and logs, node and cluster state, helm releases and values, and
application diagnostics, archived into a single compressed bundle.`,
		SilenceUsage: true,
		PreRun: func(cmd *cobra.Command, args []string) {
			viper.GetViper().BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGather(viper.GetViper())
		},
	}

	cobra.OnInitialize(initConfig)

	cmd.Flags().StringP("config", "c", "", "collection profile config file path (required)")
	cmd.MarkFlagRequired("config")

	viper.BindPFlags(cmd.Flags())
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	k8sutil.AddFlags(cmd.Flags())
	logger.InitKlogFlags(cmd.Flags())

	return cmd
}

func InitAndExecute() {
	if err := RootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("KUBEGATHER")
	viper.AutomaticEnv()
}
