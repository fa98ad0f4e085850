// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// gcsLoadTimeout bounds the object download at startup.
const gcsLoadTimeout = 30 * time.Second

// LoadFromGCS reads the registry from a Google Cloud Storage object.
//
// Description:
//
//	Downloads and parses a gs://bucket/object YAML document using ambient
//	application-default credentials. Used for deployments where the tool
//	registry is managed centrally rather than baked into the container.
//
// Inputs:
//   - source: Object URL of the form "gs://bucket/path/to/tools.yaml".
//
// Outputs:
//   - *Registry: The loaded registry.
//   - error: *LoadError if the URL is malformed, the object is
//     unreachable, or the document fails validation.
//
// Assumptions:
//   - GOOGLE_APPLICATION_CREDENTIALS (or workload identity) is configured.
func LoadFromGCS(source string) (*Registry, error) {
	bucket, object, err := splitGCSURL(source)
	if err != nil {
		return nil, &LoadError{Source: source, Message: "parsing gs:// URL", Err: err}
	}

	slog.Info("Loading tool registry from GCS", "bucket", bucket, "object", object)

	ctx, cancel := context.WithTimeout(context.Background(), gcsLoadTimeout)
	defer cancel()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, &LoadError{Source: source, Message: "creating storage client", Err: err}
	}
	defer client.Close()

	rc, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, &LoadError{Source: source, Message: "opening object", Err: err}
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, &LoadError{Source: source, Message: "reading object", Err: err}
	}

	return parse(source, raw)
}

// splitGCSURL splits "gs://bucket/object" into its parts.
func splitGCSURL(source string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(source, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected gs://bucket/object, got %q", source)
	}
	return parts[0], parts[1], nil
}
