package k8sutil

import (
	flag "github.com/spf13/pflag"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

var kubernetesConfigFlags *genericclioptions.ConfigFlags

func init() {
	kubernetesConfigFlags = genericclioptions.NewConfigFlags(false)
}

func AddFlags(flags *flag.FlagSet) {
	kubernetesConfigFlags.AddFlags(flags)
}

// SetContext pins the kubeconfig context for the rest of the process. The
// profile's context name wins over whatever the kubeconfig marks current.
func SetContext(context string) {
	if context != "" {
		kubernetesConfigFlags.Context = &context
	}
}

func GetRESTConfig() (*rest.Config, error) {
	return kubernetesConfigFlags.ToRESTConfig()
}

func GetClientset() (kubernetes.Interface, error) {
	cfg, err := GetRESTConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

// KubeconfigPath returns the kubeconfig file in use, either from the
// --kubeconfig flag or the default loading rules. External helm and kubectl
// invocations are pointed at the same file the API client uses.
func KubeconfigPath() string {
	if kubernetesConfigFlags.KubeConfig != nil && *kubernetesConfigFlags.KubeConfig != "" {
		return *kubernetesConfigFlags.KubeConfig
	}
	return clientcmd.NewDefaultClientConfigLoadingRules().GetDefaultFilename()
}
