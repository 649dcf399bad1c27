package source

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// ResourceSource reports the average CPU utilization of a Deployment's pods
// as a percentage of their requests, read from the metrics.k8s.io API.
// A value of 100 means the pods collectively burn exactly what they request.
type ResourceSource struct {
	kube    kubernetes.Interface
	metrics metricsclientset.Interface
}

// NewResourceSource creates a source backed by the cluster's metrics server.
func NewResourceSource(kube kubernetes.Interface, metrics metricsclientset.Interface) *ResourceSource {
	return &ResourceSource{kube: kube, metrics: metrics}
}

func (s *ResourceSource) Name() string { return "resource" }

// Sample implements Source. Utilization is summed usage across all pods
// matching the Deployment's selector, divided by the summed CPU requests of
// those pods, in percent.
func (s *ResourceSource) Sample(ctx context.Context, target scaling.Target) (scaling.MetricSample, error) {
	dep, err := s.kube.AppsV1().Deployments(target.Namespace).Get(ctx, target.Name, metav1.GetOptions{})
	if err != nil {
		return scaling.MetricSample{}, fmt.Errorf("%w: get deployment %s: %v", ErrUnavailable, target, err)
	}

	requestedMillis := podCPURequestMillis(dep.Spec.Template.Spec)
	if requestedMillis == 0 {
		return scaling.MetricSample{}, fmt.Errorf("%w: deployment %s sets no cpu requests", ErrUnavailable, target)
	}

	selector, err := metav1.LabelSelectorAsSelector(dep.Spec.Selector)
	if err != nil {
		return scaling.MetricSample{}, fmt.Errorf("%w: selector for %s: %v", ErrUnavailable, target, err)
	}

	podMetrics, err := s.metrics.MetricsV1beta1().PodMetricses(target.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector.String(),
	})
	if err != nil {
		return scaling.MetricSample{}, fmt.Errorf("%w: list pod metrics for %s: %v", ErrUnavailable, target, err)
	}
	if len(podMetrics.Items) == 0 {
		return scaling.MetricSample{}, fmt.Errorf("%w: no pod metrics for %s", ErrUnavailable, target)
	}

	var usedMillis int64
	var observedAt time.Time
	for _, pod := range podMetrics.Items {
		for _, container := range pod.Containers {
			if cpu, ok := container.Usage[corev1.ResourceCPU]; ok {
				usedMillis += cpu.MilliValue()
			}
		}
		if ts := pod.Timestamp.Time; ts.After(observedAt) {
			observedAt = ts
		}
	}
	if observedAt.IsZero() {
		observedAt = time.Now()
	}

	pods := int64(len(podMetrics.Items))
	utilization := float64(usedMillis) / float64(requestedMillis*pods) * 100

	return scaling.MetricSample{
		Timestamp: observedAt,
		Value:     utilization,
	}, nil
}

// podCPURequestMillis sums the CPU requests of every container in the pod
// template. Init containers are excluded: they do not run at steady state.
func podCPURequestMillis(spec corev1.PodSpec) int64 {
	var total int64
	for _, container := range spec.Containers {
		if cpu, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
			total += cpu.MilliValue()
		}
	}
	return total
}
