package kube

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"
)

const (
	appLabel   = "puzzle-builder"
	dataMount  = "/data"
	sourceFile = dataMount + "/source"
)

// JobSpec describes one in-cluster puzzle generation.
type JobSpec struct {
	Name      string
	Namespace string
	Image     string

	// SourceURL is fetched by the init container before slicing.
	SourceURL string
	Puzzle    string
	Pieces    int
	Rows      int
	Cols      int
	Format    string

	// Tiles are uploaded to this bucket; credentials come from SecretName,
	// which must hold "access-key" and "secret-key".
	Endpoint   string
	Region     string
	Bucket     string
	Prefix     string
	SecretName string

	BackoffLimit int32
}

var invalidName = regexp.MustCompile(`[^a-z0-9-]`)

// JobName turns a puzzle name into a unique DNS-1123 label.
func JobName(puzzle string) string {
	sanitized := invalidName.ReplaceAllString(strings.ToLower(puzzle), "-")
	sanitized = strings.Trim(sanitized, "-")
	suffix := uuid.NewString()[:8]

	const maxLen = 63
	prefix := "puzzle-"
	if room := maxLen - len(prefix) - len(suffix) - 1; len(sanitized) > room {
		sanitized = strings.TrimRight(sanitized[:room], "-")
	}
	if sanitized == "" {
		return prefix + suffix
	}
	return prefix + sanitized + "-" + suffix
}

func (s JobSpec) args() []string {
	args := []string{
		"generate",
		"--image", sourceFile,
		"--name", s.Puzzle,
		"--pieces", strconv.Itoa(s.Pieces),
		"--sink", "minio",
	}
	if s.Rows > 0 && s.Cols > 0 {
		args = append(args, "--rows", strconv.Itoa(s.Rows), "--cols", strconv.Itoa(s.Cols))
	}
	if s.Format != "" {
		args = append(args, "--format", s.Format)
	}
	return args
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// BuildJob creates a Job that:
// 1) downloads the source image into a shared emptyDir
// 2) runs puzzlegen on it
// 3) lets puzzlegen upload the tiles to MinIO
func BuildJob(s JobSpec) *batchv1.Job {
	backoff := s.BackoffLimit

	job := &batchv1.Job{
		ObjectMeta: meta.ObjectMeta{
			Name:      s.Name,
			Namespace: s.Namespace,
			Labels:    map[string]string{"app": appLabel},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoff,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: meta.ObjectMeta{
					Labels: map[string]string{"app": appLabel, "job-name": s.Name},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,

					InitContainers: []corev1.Container{{
						Name:    "fetch-source",
						Image:   "curlimages/curl:7.85.0",
						Command: []string{"curl", "-sSfL", "-o", sourceFile, s.SourceURL},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "data",
							MountPath: dataMount,
						}},
					}},

					Containers: []corev1.Container{{
						Name:    "puzzlegen",
						Image:   s.Image,
						Command: []string{"puzzlegen"},
						Args:    s.args(),
						Env: []corev1.EnvVar{
							{Name: "MINIO_ENDPOINT", Value: s.Endpoint},
							{Name: "MINIO_REGION", Value: s.Region},
							{Name: "MINIO_BUCKET", Value: s.Bucket},
							{Name: "MINIO_PREFIX", Value: s.Prefix},
							secretEnv("MINIO_ACCESS_KEY", s.SecretName, "access-key"),
							secretEnv("MINIO_SECRET_KEY", s.SecretName, "secret-key"),
						},
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "data",
							MountPath: dataMount,
							ReadOnly:  true,
						}},
					}},

					Volumes: []corev1.Volume{{
						Name: "data",
						VolumeSource: corev1.VolumeSource{
							EmptyDir: &corev1.EmptyDirVolumeSource{},
						},
					}},
				},
			},
		},
	}
	// Puzzle names and URLs are not valid label values.
	job.Annotations = map[string]string{
		appLabel + "/puzzle": s.Puzzle,
		appLabel + "/source": s.SourceURL,
	}
	return job
}

// NewClientset loads kubeconfig, falling back to the default home location.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return clientset, nil
}

// Submit creates job, retrying on conflicts.
func Submit(ctx context.Context, clientset kubernetes.Interface, job *batchv1.Job) (*batchv1.Job, error) {
	var created *batchv1.Job
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		var err error
		created, err = clientset.BatchV1().Jobs(job.Namespace).Create(ctx, job, meta.CreateOptions{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create job %s/%s: %w", job.Namespace, job.Name, err)
	}
	return created, nil
}
