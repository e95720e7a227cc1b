// Package catalog maps quality tiers onto concrete provider models and their
// advertised price labels. Everything here is a fixed lookup table; resolution
// never fails and never performs I/O.
package catalog

// Mode enumerates the supported image operations.
type Mode string

const (
	ModeGen     Mode = "gen"
	ModeEdit    Mode = "edit"
	ModeUpscale Mode = "upscale"
	ModeRembg   Mode = "rembg"
	ModeSVG     Mode = "svg"
)

// Tier is a cost/quality level. The ordering iterate < default < premium <
// max is by price, not by string value.
type Tier string

const (
	TierIterate Tier = "iterate"
	TierDefault Tier = "default"
	TierPremium Tier = "premium"
	TierMax     Tier = "max"
)

// ParseTier coerces free-form input into a known tier. Unknown strings fall
// back to the default tier rather than erroring; tier selection is a policy
// knob, not validated input.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierIterate, TierDefault, TierPremium, TierMax:
		return Tier(s)
	default:
		return TierDefault
	}
}

// CloudflareModel is the only model served by the free synchronous provider.
const CloudflareModel = "@cf/black-forest-labs/flux-2-klein-4b"

var genModels = map[Tier]string{
	TierIterate: "fal-ai/flux-2/flash",
	TierDefault: "fal-ai/flux-2/turbo",
	TierPremium: "fal-ai/flux-2-pro",
	TierMax:     "fal-ai/flux-2-max",
}

var genTextModels = map[Tier]string{
	TierIterate: "fal-ai/recraft/v3/text-to-image",
	TierDefault: "fal-ai/recraft/v3/text-to-image",
	TierPremium: "fal-ai/ideogram/v2",
	TierMax:     "fal-ai/ideogram/v2",
}

var editModels = map[Tier]string{
	TierIterate: "fal-ai/flux-2/flash/edit",
	TierDefault: "fal-ai/flux-2/turbo/edit",
	TierPremium: "fal-ai/flux-2-pro/edit",
	TierMax:     "fal-ai/flux-2-flex/edit",
}

var upscaleModels = map[Tier]string{
	TierIterate: "fal-ai/seedvr/upscale/image",
	TierDefault: "fal-ai/seedvr/upscale/image",
	TierPremium: "fal-ai/clarity-upscaler",
	TierMax:     "fal-ai/clarity-upscaler",
}

// Util models are tierless.
const (
	RembgModel     = "fal-ai/imageutils/rembg"
	VectorizeModel = "fal-ai/recraft/vectorize"
)

var genPricing = map[Tier]string{
	TierIterate: "FREE (CF)",
	TierDefault: "$0.008/MP",
	TierPremium: "$0.03/MP",
	TierMax:     "$0.07/MP",
}

var genTextPricing = map[Tier]string{
	TierIterate: "$0.04/img",
	TierDefault: "$0.04/img",
	TierPremium: "$0.08/img",
	TierMax:     "$0.08/img",
}

var editPricing = map[Tier]string{
	TierIterate: "$0.005/MP",
	TierDefault: "$0.008/MP",
	TierPremium: "$0.03/MP",
	TierMax:     "$0.06/MP",
}

var upscalePricing = map[Tier]string{
	TierIterate: "$0.001/MP",
	TierDefault: "$0.001/MP",
	TierPremium: "$0.03/MP",
	TierMax:     "$0.03/MP",
}

const (
	RembgPrice     = "FREE"
	VectorizePrice = "$0.01/img"
)

// Selection is a resolved (model, price label) pair.
type Selection struct {
	Model string
	Price string
}

// ResolveGen selects the generation model for a tier. text selects the
// text/logo specialist table.
func ResolveGen(tier Tier, text bool) Selection {
	if text {
		return Selection{Model: genTextModels[tier], Price: genTextPricing[tier]}
	}
	return Selection{Model: genModels[tier], Price: genPricing[tier]}
}

// ResolveEdit selects the edit model for a tier. refs is the number of
// style/composition references: two or more force the max tier, which is the
// only model capable of multi-reference composition.
func ResolveEdit(tier Tier, refs int) (Tier, Selection) {
	if refs >= 2 {
		tier = TierMax
	}
	return tier, Selection{Model: editModels[tier], Price: editPricing[tier]}
}

// ResolveUpscale selects the upscale model for a tier.
func ResolveUpscale(tier Tier) Selection {
	return Selection{Model: upscaleModels[tier], Price: upscalePricing[tier]}
}

// OffersFreeSync reports whether the free synchronous provider serves this
// request shape. It is only offered for plain generation at the iterate tier.
func OffersFreeSync(mode Mode, tier Tier, text bool) bool {
	return mode == ModeGen && tier == TierIterate && !text
}
