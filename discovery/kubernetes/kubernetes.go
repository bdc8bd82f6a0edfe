// Package kubernetes discovers engines running as pods. The discovery label
// is used as a label selector, so both "qix-engine" and "qix-engine=true"
// are accepted.
package kubernetes

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the pod appears in engine views.
const Backend = "kubernetes"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeKubernetes, func(cfg discovery.Config, log *logger.Logger) (discovery.Adapter, error) {
		restCfg, err := buildRestConfig(cfg.Kubernetes)
		if err != nil {
			return nil, fmt.Errorf("kubernetes: build config: %w", err)
		}
		clientset, err := kubernetes.NewForConfig(restCfg)
		if err != nil {
			return nil, fmt.Errorf("kubernetes: create clientset: %w", err)
		}
		return NewAdapter(clientset, cfg.Label, cfg.Kubernetes, log)
	})
}

func buildRestConfig(cfg discovery.KubernetesConfig) (*rest.Config, error) {
	if cfg.Kubeconfig != "" {
		return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
			&clientcmd.ClientConfigLoadingRules{ExplicitPath: cfg.Kubeconfig},
			&clientcmd.ConfigOverrides{CurrentContext: cfg.Context},
		).ClientConfig()
	}
	return rest.InClusterConfig()
}

// Adapter lists running pods matching the discovery label selector.
type Adapter struct {
	client    kubernetes.Interface
	selector  labels.Selector
	namespace string
	portName  string
	log       *logger.Logger
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter over client. An empty namespace lists pods
// in all namespaces.
func NewAdapter(client kubernetes.Interface, label string, cfg discovery.KubernetesConfig, log *logger.Logger) (*Adapter, error) {
	sel, err := labels.Parse(label)
	if err != nil {
		return nil, fmt.Errorf("kubernetes: label selector %q: %w", label, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{
		client:    client,
		selector:  sel,
		namespace: cfg.Namespace,
		portName:  cfg.PortName,
		log:       log,
	}, nil
}

func (a *Adapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	pods, err := a.client.CoreV1().Pods(a.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: a.selector.String(),
		FieldSelector: fields.OneTermEqualSelector("status.phase", string(corev1.PodRunning)).String(),
	})
	if err != nil {
		return nil, fmt.Errorf("kubernetes: list pods: %w", err)
	}

	records := make([]discovery.Record, 0, len(pods.Items))
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Status.Phase != corev1.PodRunning || pod.DeletionTimestamp != nil {
			continue
		}
		if pod.Status.PodIP == "" {
			a.log.Debug("skipping engine pod without IP", logger.Fields(
				logger.FieldEngineKey, string(pod.UID), "pod", pod.Name))
			continue
		}
		records = append(records, discovery.Record{
			Key:       string(pod.UID),
			Addresses: podIPs(pod),
			Port:      a.apiPort(pod),
			Labels:    pod.Labels,
			Backend:   Backend,
			Raw:       pod,
		})
	}
	return records, nil
}

func podIPs(pod *corev1.Pod) []string {
	out := []string{pod.Status.PodIP}
	for _, ip := range pod.Status.PodIPs {
		if ip.IP != pod.Status.PodIP {
			out = append(out, ip.IP)
		}
	}
	return out
}

// apiPort returns the container port named portName, else the first declared
// port, 0 when the pod declares none.
func (a *Adapter) apiPort(pod *corev1.Pod) int {
	first := 0
	for _, c := range pod.Spec.Containers {
		for _, p := range c.Ports {
			if p.Name == a.portName {
				return int(p.ContainerPort)
			}
			if first == 0 {
				first = int(p.ContainerPort)
			}
		}
	}
	return first
}
