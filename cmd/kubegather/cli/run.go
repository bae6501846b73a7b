package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	cursor "github.com/ahmetalpbalkan/go-cursor"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	spin "github.com/tj/go-spin"

	"github.com/wtuxedo/kubegather/pkg/config"
	"github.com/wtuxedo/kubegather/pkg/gather"
	"github.com/wtuxedo/kubegather/pkg/k8sutil"
	"github.com/wtuxedo/kubegather/pkg/logger"
)

func runGather(v *viper.Viper) error {
	interactive := isatty.IsTerminal(os.Stdout.Fd())

	if interactive {
		fmt.Print(cursor.Hide())
		defer fmt.Print(cursor.Show())
	}

	go func() {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt)
		<-signalChan
		fmt.Print(cursor.Show())
		os.Exit(0)
	}()

	profile, err := config.Load(v.GetString("config"))
	if err != nil {
		return errors.Wrap(err, "failed to load collection profile")
	}

	k8sutil.SetContext(profile.ContextName)

	restConfig, err := k8sutil.GetRESTConfig()
	if err != nil {
		return errors.Wrap(err, "failed to convert kube flags to rest config")
	}
	client, err := k8sutil.GetClientset()
	if err != nil {
		return errors.Wrap(err, "failed to create kubernetes client")
	}

	runLogPath, err := logger.StartRunLog(profile.OutputDir)
	if err != nil {
		return errors.Wrap(err, "failed to start run log")
	}

	s := spin.New()
	finishedCh := make(chan bool, 1)
	progressChan := make(chan interface{}) // non-zero buffer can result in missed messages
	go func() {
		currentTask := ""
		for {
			select {
			case msg := <-progressChan:
				switch msg := msg.(type) {
				case error:
					if interactive {
						c := color.New(color.FgHiRed)
						c.Printf("%s\r * %v\n", cursor.ClearEntireLine(), msg)
					}
				case string:
					currentTask = msg
				}
			case <-finishedCh:
				if interactive {
					fmt.Printf("\r%s\r", cursor.ClearEntireLine())
				}
				return
			case <-time.After(time.Millisecond * 100):
				if !interactive {
					continue
				}
				if currentTask == "" {
					fmt.Printf("\r%s \033[36mGathering cluster diagnostics\033[m %s", cursor.ClearEntireLine(), s.Next())
				} else {
					fmt.Printf("\r%s \033[36mGathering cluster diagnostics\033[m %s %s", cursor.ClearEntireLine(), s.Next(), currentTask)
				}
			}
		}
	}()
	defer close(finishedCh)

	g := &gather.Gatherer{
		Profile:        profile,
		RestConfig:     restConfig,
		Client:         client,
		KubeconfigPath: k8sutil.KubeconfigPath(),
		RunLogPath:     runLogPath,
		Progress:       progressChan,
	}

	archivePath, err := g.Run(context.Background())
	if err != nil {
		return errors.Wrap(err, "failed to gather diagnostics")
	}

	c := color.New(color.FgHiGreen)
	c.Printf("\r%s\rDiagnostics bundle written to %s\n", cursor.ClearEntireLine(), archivePath)

	return nil
}
