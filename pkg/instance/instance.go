package instance

import "os"

// ID names this process in logs: MKS_INSTANCE_ID, then the hostname (the
// pod name on Cloud Run and Kubernetes), then "local".
func ID() string {
	if id := os.Getenv("MKS_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
