package hostclient

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ExportHandle exports a host surface via zxdg_exporter_v2 so a peer
// client (the host compositor's own xdg-foreign consumer) can later
// import it as a parent (spec §4.2 "export_handle(surface)"). The
// opaque handle string is passed to done once the exporter replies; the
// returned error covers only the request itself, and absence of the
// optional global is reported there, not treated as fatal.
func (c *Client) ExportHandle(hostSurfaceID uint32, done func(handle string)) error {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return fmt.Errorf("no host surface %d", hostSurfaceID)
	}
	exporter, ok := c.exporter()
	if !ok {
		return fmt.Errorf("zxdg_exporter_v2 not bound")
	}
	exported, err := exporter.ExportToplevel(h.surface)
	if err != nil {
		return fmt.Errorf("export_toplevel: %w", err)
	}
	exported.SetHandleHandler(func(ev client.ZxdgExportedV2HandleEvent) {
		if done != nil {
			done(ev.Handle)
		}
	})
	return nil
}

// ImportHandle imports a foreign handle via zxdg_importer_v2 and
// parents hostSurfaceID's toplevel to it (spec §4.2
// "import_handle(str)"), used for transient/modal X windows whose
// WM_TRANSIENT_FOR points outside this satellite's own window set.
func (c *Client) ImportHandle(hostSurfaceID uint32, handle string) error {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok || h.toplevel == nil {
		return fmt.Errorf("host surface %d has no toplevel", hostSurfaceID)
	}
	importer, ok := c.importer()
	if !ok {
		return fmt.Errorf("zxdg_importer_v2 not bound")
	}
	imported, err := importer.ImportToplevel(handle)
	if err != nil {
		return fmt.Errorf("import_toplevel: %w", err)
	}
	return imported.SetParentOf(h.surface)
}

func (c *Client) exporter() (*client.ZxdgExporterV2, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exporterProxy != nil {
		return c.exporterProxy, true
	}
	name, ok := c.globalNames["zxdg_exporter_v2"]
	if !ok {
		return nil, false
	}
	exp := client.NewZxdgExporterV2Id(c.registry.Context())
	if err := c.registry.Bind(name, "zxdg_exporter_v2", 1, exp); err != nil {
		return nil, false
	}
	c.exporterProxy = exp
	return exp, true
}

func (c *Client) importer() (*client.ZxdgImporterV2, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.importerProxy != nil {
		return c.importerProxy, true
	}
	name, ok := c.globalNames["zxdg_importer_v2"]
	if !ok {
		return nil, false
	}
	imp := client.NewZxdgImporterV2Id(c.registry.Context())
	if err := c.registry.Bind(name, "zxdg_importer_v2", 1, imp); err != nil {
		return nil, false
	}
	c.importerProxy = imp
	return imp, true
}
