package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
)

// KubernetesSource samples current deployment utilization from the
// metrics API. Each GetUsage call produces one instantaneous record;
// callers poll over time to accumulate a window.
type KubernetesSource struct {
	clientset     kubernetes.Interface
	metricsClient metricsv.Interface
	namespace     string
	costPerSample float64
}

// NewKubernetesSource builds a source from the kubeconfig in the
// user's home directory. costPerSample is the currency figure stamped
// on each record, supplied by the pricing configuration.
func NewKubernetesSource(kubeconfig, namespace string, costPerSample float64) (*KubernetesSource, error) {
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &KubernetesSource{
		clientset:     clientset,
		metricsClient: metricsClient,
		namespace:     namespace,
		costPerSample: costPerSample,
	}, nil
}

func (k *KubernetesSource) Name() string {
	return "kubernetes"
}

// ListResources returns namespace/name ids for deployments in scope.
func (k *KubernetesSource) ListResources(ctx context.Context) ([]string, error) {
	deployments, err := k.clientset.AppsV1().Deployments(k.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	ids := make([]string, 0, len(deployments.Items))
	for _, d := range deployments.Items {
		ids = append(ids, d.Namespace+"/"+d.Name)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetUsage samples the deployment's current CPU utilization against
// its requests. The window arguments are ignored; the metrics API only
// serves the present.
func (k *KubernetesSource) GetUsage(ctx context.Context, resourceID string, from, to time.Time) ([]models.UsageRecord, error) {
	namespace, name, err := splitID(resourceID)
	if err != nil {
		return nil, err
	}

	deployment, err := k.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", resourceID, err)
	}

	var requestedMillicores int64
	for _, container := range deployment.Spec.Template.Spec.Containers {
		if cpu, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
			requestedMillicores += cpu.MilliValue()
		}
	}

	podMetrics, err := k.metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: metav1.FormatLabelSelector(deployment.Spec.Selector),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod metrics for %s: %w", resourceID, err)
	}

	var usedMillicores int64
	for _, pm := range podMetrics.Items {
		for _, container := range pm.Containers {
			cpu := container.Usage[corev1.ResourceCPU]
			usedMillicores += cpu.MilliValue()
		}
	}

	record := models.UsageRecord{
		ResourceID: resourceID,
		Provider:   "kubernetes",
		Service:    "deployment",
		Timestamp:  time.Now(),
		Cost:       k.costPerSample,
	}
	replicas := int64(1)
	if deployment.Spec.Replicas != nil && *deployment.Spec.Replicas > 0 {
		replicas = int64(*deployment.Spec.Replicas)
	}
	if total := requestedMillicores * replicas; total > 0 {
		record.Utilization = float64(usedMillicores) / float64(total)
		if record.Utilization > 1 {
			record.Utilization = 1
		}
		record.HasUtilization = true
	}

	return []models.UsageRecord{record}, nil
}

func (k *KubernetesSource) IsAvailable(ctx context.Context) bool {
	_, err := k.clientset.Discovery().ServerVersion()
	return err == nil
}

func splitID(resourceID string) (namespace, name string, err error) {
	for i := 0; i < len(resourceID); i++ {
		if resourceID[i] == '/' {
			if i == 0 || i == len(resourceID)-1 {
				break
			}
			return resourceID[:i], resourceID[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid resource id %q, want namespace/name", resourceID)
}
