package hcloud

import (
	"fmt"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/provider"
	"github.com/imamik/simrun/internal/util/labels"
)

// serverListOpts translates instance filter conditions into server list
// options. Supported keys are name, status and labels.<key>.
func serverListOpts(conds []provider.Condition) (hcloud.ServerListOpts, error) {
	var opts hcloud.ServerListOpts
	selector := map[string]string{}

	for _, c := range conds {
		switch {
		case c.Key == "name":
			opts.Name = c.Value
		case c.Key == "status":
			opts.Status = append(opts.Status, hcloud.ServerStatus(c.Value))
		case strings.HasPrefix(c.Key, "labels."):
			selector[strings.TrimPrefix(c.Key, "labels.")] = c.Value
		default:
			return opts, &provider.InvalidFilter{Reason: fmt.Sprintf("unsupported key %q", c.Key)}
		}
	}

	opts.LabelSelector = labels.Selector(selector)
	return opts, nil
}
