// Package kubernetes implements the provider adapter for cluster
// workloads. Resource ids are namespace/name pairs referencing
// Deployments; resize rewrites the first container's requests.
package kubernetes

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/opscart/cloud-cost-advisor/pkg/models"
	"github.com/opscart/cloud-cost-advisor/pkg/provider"
)

// Adapter mutates Deployment resource requests in a cluster.
type Adapter struct {
	clientset kubernetes.Interface
	logger    *zap.Logger
}

// New builds an adapter from the kubeconfig in the user's home
// directory, or in-cluster config when kubeconfig is empty and absent.
func New(kubeconfig string, logger *zap.Logger) (*Adapter, error) {
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

	return NewWithClient(clientset, logger), nil
}

// NewWithClient creates an adapter on an existing clientset. Used by
// tests to inject a fake.
func NewWithClient(clientset kubernetes.Interface, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{clientset: clientset, logger: logger}
}

func (a *Adapter) Name() string {
	return "kubernetes"
}

// splitResourceID parses "namespace/name".
func splitResourceID(resourceID string) (namespace, name string, err error) {
	parts := strings.SplitN(resourceID, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid resource id %q, want namespace/name", resourceID)
	}
	return parts[0], parts[1], nil
}

// GetResourceState captures the deployment's replica count and the
// first container's resource requests.
func (a *Adapter) GetResourceState(ctx context.Context, resourceID string) (*models.Snapshot, error) {
	namespace, name, err := splitResourceID(resourceID)
	if err != nil {
		return nil, err
	}

	deployment, err := a.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", resourceID, err)
	}

	state := map[string]string{
		"replicas": fmt.Sprintf("%d", *deployment.Spec.Replicas),
	}
	if len(deployment.Spec.Template.Spec.Containers) > 0 {
		requests := deployment.Spec.Template.Spec.Containers[0].Resources.Requests
		if cpu, ok := requests[corev1.ResourceCPU]; ok {
			state["cpu_request"] = cpu.String()
		}
		if mem, ok := requests[corev1.ResourceMemory]; ok {
			state["memory_request"] = mem.String()
		}
	}

	return &models.Snapshot{
		ResourceID: resourceID,
		Provider:   a.Name(),
		CapturedAt: time.Now(),
		State:      state,
	}, nil
}

// RestoreState reapplies the captured resource requests.
func (a *Adapter) RestoreState(ctx context.Context, resourceID string, snapshot *models.Snapshot) error {
	namespace, name, err := splitResourceID(resourceID)
	if err != nil {
		return err
	}

	deployment, err := a.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s: %w", resourceID, err)
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return fmt.Errorf("deployment %s has no containers", resourceID)
	}

	requests := corev1.ResourceList{}
	if cpu, ok := snapshot.State["cpu_request"]; ok {
		qty, err := resource.ParseQuantity(cpu)
		if err != nil {
			return fmt.Errorf("invalid cpu request in snapshot: %w", err)
		}
		requests[corev1.ResourceCPU] = qty
	}
	if mem, ok := snapshot.State["memory_request"]; ok {
		qty, err := resource.ParseQuantity(mem)
		if err != nil {
			return fmt.Errorf("invalid memory request in snapshot: %w", err)
		}
		requests[corev1.ResourceMemory] = qty
	}

	deployment.Spec.Template.Spec.Containers[0].Resources.Requests = requests
	if _, err := a.clientset.AppsV1().Deployments(namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to restore deployment %s: %w", resourceID, err)
	}

	a.logger.Info("restored deployment requests",
		zap.String("deployment", resourceID))
	return nil
}

// Resize sets the first container's CPU and memory requests.
func (a *Adapter) Resize(ctx context.Context, resourceID string, params *models.ResizeParams) (*provider.Result, error) {
	namespace, name, err := splitResourceID(resourceID)
	if err != nil {
		return nil, err
	}
	if params == nil || (params.CPU <= 0 && params.MemoryMB <= 0) {
		return nil, fmt.Errorf("resize for %s requires cpu or memory targets", resourceID)
	}

	deployment, err := a.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", resourceID, err)
	}
	if len(deployment.Spec.Template.Spec.Containers) == 0 {
		return nil, fmt.Errorf("deployment %s has no containers", resourceID)
	}

	requests := deployment.Spec.Template.Spec.Containers[0].Resources.Requests
	if requests == nil {
		requests = corev1.ResourceList{}
	}
	if params.CPU > 0 {
		requests[corev1.ResourceCPU] = *resource.NewMilliQuantity(params.CPU, resource.DecimalSI)
	}
	if params.MemoryMB > 0 {
		requests[corev1.ResourceMemory] = *resource.NewQuantity(params.MemoryMB*1024*1024, resource.BinarySI)
	}
	deployment.Spec.Template.Spec.Containers[0].Resources.Requests = requests

	if _, err := a.clientset.AppsV1().Deployments(namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return nil, fmt.Errorf("failed to resize deployment %s: %w", resourceID, err)
	}

	a.logger.Info("resized deployment",
		zap.String("deployment", resourceID),
		zap.Int64("cpu_millicores", params.CPU),
		zap.Int64("memory_mb", params.MemoryMB))
	return &provider.Result{
		ResourceID: resourceID,
		Detail:     fmt.Sprintf("requests set to %dm cpu / %dMi memory", params.CPU, params.MemoryMB),
	}, nil
}

// AdjustCommitment has no cluster-level equivalent.
func (a *Adapter) AdjustCommitment(ctx context.Context, resourceID string, params *models.CommitmentParams) (*provider.Result, error) {
	return nil, fmt.Errorf("commitment adjustment not supported for kubernetes resources")
}

// Cleanup deletes the deployment.
func (a *Adapter) Cleanup(ctx context.Context, resourceID string, params *models.CleanupParams) (*provider.Result, error) {
	namespace, name, err := splitResourceID(resourceID)
	if err != nil {
		return nil, err
	}

	if err := a.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return nil, fmt.Errorf("failed to delete deployment %s: %w", resourceID, err)
	}

	a.logger.Info("deleted deployment", zap.String("deployment", resourceID))
	return &provider.Result{ResourceID: resourceID, Detail: "deployment deleted"}, nil
}
