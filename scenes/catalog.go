package scenes

import "github.com/automoto/nafsync/netentity"

const (
	TemplateAvatar = "avatar"
	TemplateMarker = "marker"
)

// DefaultCatalog holds the templates the headless client knows: a tinted
// avatar and a plain transform-only marker.
func DefaultCatalog() (*netentity.Catalog, error) {
	avatar, err := netentity.NewTemplate(TemplateAvatar, netentity.ComponentRegistration{
		Index: ColorComponentIndex,
		New:   NewColorComponent,
	})
	if err != nil {
		return nil, err
	}
	marker, err := netentity.NewTemplate(TemplateMarker)
	if err != nil {
		return nil, err
	}
	return netentity.NewCatalog(avatar, marker)
}
