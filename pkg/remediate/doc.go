/*
Package remediate restarts failing containers and runs the optional
post-action script.

A remediation always logs three WARN lines before acting: the unhealthy
summary, the last health check output with its exit code, and the restart
announcement with the stop timeout that will be used. The restart itself goes
through the Docker API with the container's resolved stop timeout.

# Post-action

When a post-action path is configured it is executed after every restart
attempt, successful or not, as:

	<post-action> <container-name> <container-id> <stop-timeout>

The remediator waits for the script to finish. A script that exits on its
own is reported at INFO with its exit code; a missing script, or one that
cannot be started, is reported at ERROR. The post-action result never alters
the restart message that is forwarded to notification channels.

# Metrics

	autoheal_restarts_total{result="success|failure"}
	autoheal_post_actions_total{result="success|failure|missing"}
*/
package remediate
