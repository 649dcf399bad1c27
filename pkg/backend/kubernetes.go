package backend

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// KubernetesBackend scales Deployments through the scale subresource, so it
// never conflicts with other writers of the Deployment spec.
type KubernetesBackend struct {
	client kubernetes.Interface
}

// NewKubernetesBackend creates a backend on top of a Kubernetes clientset.
func NewKubernetesBackend(client kubernetes.Interface) *KubernetesBackend {
	return &KubernetesBackend{client: client}
}

// Replicas implements Backend. It reports the scale spec, not the number of
// pods currently running: decisions are relative to what was asked for.
func (b *KubernetesBackend) Replicas(ctx context.Context, target scaling.Target) (int32, error) {
	scale, err := b.client.AppsV1().Deployments(target.Namespace).GetScale(ctx, target.Name, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: get scale for %s: %v", ErrUnavailable, target, err)
	}
	return scale.Spec.Replicas, nil
}

// SetReplicas implements Backend with a read-modify-write of the scale
// subresource, carrying the fresh resourceVersion into the update.
func (b *KubernetesBackend) SetReplicas(ctx context.Context, target scaling.Target, replicas int32) error {
	deployments := b.client.AppsV1().Deployments(target.Namespace)

	scale, err := deployments.GetScale(ctx, target.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("%w: get scale for %s: %v", ErrUnavailable, target, err)
	}
	if scale.Spec.Replicas == replicas {
		return nil
	}

	scale.Spec.Replicas = replicas
	if _, err := deployments.UpdateScale(ctx, target.Name, scale, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("%w: update scale for %s to %d: %v", ErrUnavailable, target, replicas, err)
	}
	return nil
}
