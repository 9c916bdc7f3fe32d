package components

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/yohamta/donburi"
)

type TintData struct {
	Color colorful.Color
}

var Tint = donburi.NewComponentType[TintData]()
