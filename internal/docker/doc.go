// Package docker integrates with the Docker Engine for containerized
// bootstrap runs.
//
// State for container environments is persisted exclusively in Docker
// labels under the "stimenv." prefix; discovery, status derivation, and
// removal all work from label queries against the daemon. Launching a
// bootstrap run shells out to `docker run` so the operator sees uv's
// streamed output exactly as in a host bootstrap.
package docker
