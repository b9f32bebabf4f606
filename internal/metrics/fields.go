package metrics

// Attribute keys shared by the OTel instruments.
const (
	AttrMethod   = "method"
	AttrPath     = "path"
	AttrStatus   = "status"
	AttrProvider = "provider"
	AttrMode     = "mode"
	AttrKind     = "kind"
)
