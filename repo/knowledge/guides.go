package knowledge

// Range 参数范围
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Optimal float64 `json:"optimal"`
}

// Retraction 回抽设置
type Retraction struct {
	Distance float64 `json:"distance"` // mm
	Speed    float64 `json:"speed"`    // mm/s
}

// MaterialGuide 材料打印指南
type MaterialGuide struct {
	Name       string     `json:"name"`
	NozzleTemp Range      `json:"nozzle_temp"`
	BedTemp    Range      `json:"bed_temp"`
	PrintSpeed Range      `json:"print_speed"`
	Retraction Retraction `json:"retraction"`
	FanSpeed   int        `json:"fan_speed"`
	Tips       []string   `json:"tips"`
}

// Solution 缺陷解决方案，priority 越小越优先
type Solution struct {
	Action   string `json:"action"`
	Priority int    `json:"priority"`
}

// DefectGuide 缺陷排查指南
type DefectGuide struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Causes      []string   `json:"causes"`
	Solutions   []Solution `json:"solutions"`
}

// materialGuides 内置材料指南，key 为大写材料名
var materialGuides = map[string]MaterialGuide{
	"PLA": {
		Name:       "PLA (Polylactic Acid)",
		NozzleTemp: Range{Min: 190, Max: 220, Optimal: 205},
		BedTemp:    Range{Min: 50, Max: 65, Optimal: 60},
		PrintSpeed: Range{Min: 40, Max: 100, Optimal: 60},
		Retraction: Retraction{Distance: 5, Speed: 45},
		FanSpeed:   100,
		Tips: []string{
			"Easiest material to print",
			"Cooling matters, 100% part fan recommended",
			"Stringing appears at high temperatures",
			"Bed adhesion: PEI sheet or glass with glue stick",
		},
	},
	"ABS": {
		Name:       "ABS (Acrylonitrile Butadiene Styrene)",
		NozzleTemp: Range{Min: 220, Max: 260, Optimal: 240},
		BedTemp:    Range{Min: 90, Max: 110, Optimal: 100},
		PrintSpeed: Range{Min: 40, Max: 60, Optimal: 50},
		Retraction: Retraction{Distance: 4, Speed: 40},
		FanSpeed:   0,
		Tips: []string{
			"An enclosure is strongly recommended",
			"Turn the part fan off to prevent warping",
			"Keep the bed temperature high",
			"Use a brim or raft",
			"Ventilate the room, ABS releases fumes",
		},
	},
	"PETG": {
		Name:       "PETG (Polyethylene Terephthalate Glycol)",
		NozzleTemp: Range{Min: 220, Max: 250, Optimal: 230},
		BedTemp:    Range{Min: 70, Max: 85, Optimal: 75},
		PrintSpeed: Range{Min: 30, Max: 60, Optimal: 45},
		Retraction: Retraction{Distance: 5, Speed: 35},
		FanSpeed:   50,
		Tips: []string{
			"Prone to stringing, retraction tuning is key",
			"Temperature sensitive, too hot makes stringing much worse",
			"Sticks very strongly to the bed, take care when removing parts",
			"Absorbs moisture, store it dry",
			"Slow down the first layer",
		},
	},
	"TPU": {
		Name:       "TPU (Thermoplastic Polyurethane)",
		NozzleTemp: Range{Min: 220, Max: 250, Optimal: 230},
		BedTemp:    Range{Min: 50, Max: 70, Optimal: 60},
		PrintSpeed: Range{Min: 15, Max: 30, Optimal: 25},
		Retraction: Retraction{Distance: 2, Speed: 20},
		FanSpeed:   50,
		Tips: []string{
			"Print very slowly",
			"A direct drive extruder is recommended",
			"Minimize or disable retraction",
			"Hard to print through a Bowden tube",
		},
	},
}

// defectGuides 内置缺陷指南，key 为规范化后的缺陷名
var defectGuides = map[string]DefectGuide{
	"stringing": {
		Name:        "Stringing",
		Description: "Thin strands of filament are left along travel moves",
		Causes: []string{
			"Nozzle temperature too high",
			"Insufficient retraction",
			"Wet filament",
			"Travel speed too slow",
		},
		Solutions: []Solution{
			{Action: "Lower the nozzle temperature by 5-10°C", Priority: 1},
			{Action: "Increase retraction distance by 1-2mm", Priority: 2},
			{Action: "Increase retraction speed by 10-20mm/s", Priority: 3},
			{Action: "Raise travel speed to 150mm/s or more", Priority: 4},
			{Action: "Dry the filament (50°C, 4-6 hours)", Priority: 5},
		},
	},
	"warping": {
		Name:        "Warping",
		Description: "Corners of the part lift off the bed",
		Causes: []string{
			"Bed temperature too low",
			"Cooling too fast",
			"Poor bed adhesion",
			"Ambient temperature swings",
		},
		Solutions: []Solution{
			{Action: "Raise the bed temperature by 5-10°C", Priority: 1},
			{Action: "Add an 8-10mm brim", Priority: 2},
			{Action: "Use an enclosure (ABS)", Priority: 3},
			{Action: "Set the first layer fan speed to 0%", Priority: 4},
			{Action: "Use a bed adhesive (glue stick, hairspray)", Priority: 5},
		},
	},
	"layer_adhesion": {
		Name:        "Layer Adhesion",
		Description: "Layers bond weakly and split apart easily",
		Causes: []string{
			"Nozzle temperature too low",
			"Layer height too large",
			"Print speed too fast",
			"Too much cooling",
		},
		Solutions: []Solution{
			{Action: "Raise the nozzle temperature by 5-10°C", Priority: 1},
			{Action: "Reduce layer height (75% of nozzle diameter)", Priority: 2},
			{Action: "Lower print speed by 10-20%", Priority: 3},
			{Action: "Reduce fan speed", Priority: 4},
		},
	},
	"under_extrusion": {
		Name:        "Under Extrusion",
		Description: "Not enough filament is extruded, leaving gaps",
		Causes: []string{
			"Clogged nozzle",
			"Friction in the filament path",
			"Temperature too low",
			"Weak extruder grip",
		},
		Solutions: []Solution{
			{Action: "Clean or replace the nozzle", Priority: 1},
			{Action: "Increase flow rate by 5-10%", Priority: 2},
			{Action: "Raise the nozzle temperature by 5-10°C", Priority: 3},
			{Action: "Lower print speed", Priority: 4},
			{Action: "Adjust extruder tension", Priority: 5},
		},
	},
	"over_extrusion": {
		Name:        "Over Extrusion",
		Description: "Too much filament is extruded, the surface turns lumpy",
		Causes: []string{
			"Flow rate too high",
			"Wrong filament diameter setting",
			"E-steps out of calibration",
		},
		Solutions: []Solution{
			{Action: "Lower flow rate by 5-10%", Priority: 1},
			{Action: "Calibrate filament diameter", Priority: 2},
			{Action: "Recalibrate E-steps", Priority: 3},
		},
	},
	"first_layer": {
		Name:        "First Layer Issues",
		Description: "The first layer does not stick to the bed",
		Causes: []string{
			"Bed not level",
			"Nozzle too far from the bed",
			"Bed temperature too low",
			"Dirty bed surface",
		},
		Solutions: []Solution{
			{Action: "Re-level the bed", Priority: 1},
			{Action: "Adjust Z-offset (move the nozzle closer)", Priority: 2},
			{Action: "Raise the bed temperature by 5-10°C", Priority: 3},
			{Action: "Slow the first layer down by 50%", Priority: 4},
			{Action: "First layer flow 105-110%", Priority: 5},
			{Action: "Clean the bed with IPA", Priority: 6},
		},
	},
}

// defectAliases 缺陷别名
var defectAliases = map[string]string{
	"adhesion":     "first_layer",
	"bed_adhesion": "first_layer",
	"sticking":     "first_layer",
	"oozing":       "stringing",
	"warp":         "warping",
	"delamination": "layer_adhesion",
}
