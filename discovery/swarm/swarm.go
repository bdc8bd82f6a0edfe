// Package swarm discovers engines running as Docker Swarm service tasks.
package swarm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/swarm"

	"github.com/kbukum/mira/discovery"
	"github.com/kbukum/mira/discovery/docker"
	"github.com/kbukum/mira/logger"
)

// Backend is the name under which the task appears in engine views.
const Backend = "swarm"

func init() {
	discovery.RegisterAdapterFactory(discovery.ModeSwarm, func(cfg discovery.Config, log *logger.Logger) (discovery.Adapter, error) {
		cli, err := docker.NewClient(cfg.Docker)
		if err != nil {
			return nil, err
		}
		return NewAdapter(cli, cfg.Label, cfg.Swarm.Networks, log), nil
	})
}

// TaskAPI is the part of the Docker client the adapter uses.
type TaskAPI interface {
	TaskList(ctx context.Context, options swarm.TaskListOptions) ([]swarm.Task, error)
	Close() error
}

// Adapter lists running tasks whose container spec carries the discovery
// label.
type Adapter struct {
	client   TaskAPI
	label    string
	networks []string
	log      *logger.Logger
}

var _ discovery.Adapter = (*Adapter)(nil)

// NewAdapter creates an adapter over cli. When networks is non-empty only
// attachments to those networks are used for polling.
func NewAdapter(cli TaskAPI, label string, networks []string, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{client: cli, label: label, networks: networks, log: log}
}

func (a *Adapter) ListEngines(ctx context.Context) ([]discovery.Record, error) {
	tasks, err := a.client.TaskList(ctx, swarm.TaskListOptions{
		Filters: filters.NewArgs(filters.Arg("desired-state", "running")),
	})
	if err != nil {
		return nil, fmt.Errorf("swarm: list tasks: %w", err)
	}

	records := make([]discovery.Record, 0, len(tasks))
	for _, task := range tasks {
		if task.Spec.ContainerSpec == nil {
			continue
		}
		if _, ok := task.Spec.ContainerSpec.Labels[a.label]; !ok {
			continue
		}
		if task.Status.State != swarm.TaskStateRunning {
			a.log.Debug("skipping engine task that is not running", logger.Fields(
				logger.FieldEngineKey, task.ID, logger.FieldStatus, string(task.Status.State)))
			continue
		}

		addrs := a.addresses(task)
		if len(addrs) == 0 {
			continue
		}
		labels := make(map[string]string, len(task.Spec.ContainerSpec.Labels))
		for k, v := range task.Spec.ContainerSpec.Labels {
			labels[k] = v
		}
		records = append(records, discovery.Record{
			Key:       task.ID,
			Addresses: addrs,
			Labels:    labels,
			Backend:   Backend,
			Raw:       task,
		})
	}
	return records, nil
}

// addresses returns the first address of every eligible network attachment
// with the prefix length stripped, in allow-list order. Ingress networks are
// never eligible. A task on several networks with no allow-list has no
// address: the primary one would be a guess.
func (a *Adapter) addresses(task swarm.Task) []string {
	var eligible []swarm.NetworkAttachment
	for _, att := range task.NetworksAttachments {
		if att.Network.Spec.Ingress || len(att.Addresses) == 0 {
			continue
		}
		if len(a.networks) > 0 && !slices.Contains(a.networks, att.Network.Spec.Name) {
			continue
		}
		eligible = append(eligible, att)
	}
	if len(eligible) > 1 && len(a.networks) == 0 {
		names := make([]string, len(eligible))
		for i, att := range eligible {
			names[i] = att.Network.Spec.Name
		}
		a.log.Warn("skipping engine task attached to several networks, set discovery.swarm.networks", logger.Fields(
			logger.FieldEngineKey, task.ID,
			"networks", names))
		return nil
	}
	slices.SortStableFunc(eligible, func(x, y swarm.NetworkAttachment) int {
		return slices.Index(a.networks, x.Network.Spec.Name) - slices.Index(a.networks, y.Network.Spec.Name)
	})

	if len(eligible) == 0 {
		a.log.Warn("no matching network found for engine task", logger.Fields(logger.FieldEngineKey, task.ID))
		return nil
	}

	out := make([]string, 0, len(eligible))
	for _, att := range eligible {
		addr, _, _ := strings.Cut(att.Addresses[0], "/")
		out = append(out, addr)
	}
	return out
}

// Close releases the Docker client.
func (a *Adapter) Close() error {
	return a.client.Close()
}
