/*
Package runtime connects autoheal to the Docker engine and discovers
unhealthy containers.

# Connection Types

	local   client.FromEnv (DOCKER_HOST, DOCKER_CERT_PATH, ...), default
	socket  unix:///var/run/docker.sock
	http    tcp://host:port (default port 2375)
	ssl     tcp://host:port with client TLS (default port 2376), key.pem,
	        cert.pem and ca.pem loaded from the PEM directory

The connection timeout applies to every API request on http and ssl
connections. It is unrelated to the per-container stop timeout passed to
ContainerRestart.

# Discovery

Discover issues one ContainerList call per cycle:

	health=unhealthy
	status=running|exited|dead
	label=<filter>            omitted when the filter is "all"

Names have the leading "/" stripped and ids are shortened to 12 characters.
A list error means the engine is unreachable; the reconciler treats it as
fatal.

Code that needs the engine depends on the Client interface, so tests can
substitute runtimetest.Fake.
*/
package runtime
