package components

import "github.com/yohamta/donburi"

// TemplateData names the template an entity was spawned from.
type TemplateData struct {
	ID string
}

var Template = donburi.NewComponentType[TemplateData]()
