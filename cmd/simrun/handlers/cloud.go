package handlers

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/imamik/simrun/internal/deploy"
	"github.com/imamik/simrun/internal/util/labels"
)

// InstancesList handles the instances list command.
func InstancesList(ctx context.Context, configPath string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer a.close()

	instances, err := deploy.InstanceList(ctx, a.cloud)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tZONE\tTYPE\tIP\tJOB\tAGE")
	for _, i := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i.Name, i.Status, i.Zone, i.Type, dash(i.PublicIP), dash(i.Labels[labels.KeyJob]), age(i.CreatedAt))
	}
	return w.Flush()
}

// CatalogImages handles the catalog images command.
func CatalogImages(ctx context.Context, configPath string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer a.close()

	images, err := a.cloud.ImagesList(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOS\tARCH\tDESCRIPTION")
	for _, i := range images {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", i.Name, i.OSFlavor, i.Architecture, dash(i.Description))
	}
	return w.Flush()
}

// CatalogZones handles the catalog zones command.
func CatalogZones(ctx context.Context, configPath string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer a.close()

	zones, err := a.cloud.ZonesList(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCITY\tCOUNTRY\tNETWORK ZONE")
	for _, z := range zones {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", z.Name, z.City, z.Country, z.NetworkZone)
	}
	return w.Flush()
}

// CatalogTypes handles the catalog types command. An empty zone selects
// the zone of the default machine.
func CatalogTypes(ctx context.Context, configPath, zone string, out io.Writer) error {
	a, err := newApp(configPath, appOptions{withoutStore: true})
	if err != nil {
		return err
	}
	defer a.close()

	if zone == "" {
		zone = a.cfg.Machine.Zone
	}
	types, err := a.cloud.TypesList(ctx, zone)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCORES\tMEMORY\tDISK\tARCH\tPRICE/MONTH")
	for _, t := range types {
		fmt.Fprintf(w, "%s\t%d\t%.0f GB\t%d GB\t%s\t%s\n", t.Name, t.Cores, t.MemoryGB, t.DiskGB, t.Architecture, dash(t.PriceMonthly))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return time.Since(t).Round(time.Second).String()
}
