package catalog

import (
	"context"

	"github.com/rotisserie/eris"
)

// whirlpoolFamily lists brands whose parts interchange with Whirlpool parts,
// with the confidence of that interchange.
var whirlpoolFamily = map[string]float64{
	"Admiral":    0.95,
	"Amana":      0.90,
	"Estate":     0.85,
	"Inglis":     0.80,
	"KitchenAid": 0.90,
	"Kenmore":    0.85,
	"Maytag":     0.80,
}

// SeedBrandRelationships returns the reference brand relationship table.
func SeedBrandRelationships() []BrandRelationship {
	var rels []BrandRelationship
	for _, at := range []ApplianceType{Refrigerator, Dishwasher} {
		for brand, conf := range whirlpoolFamily {
			rels = append(rels, BrandRelationship{
				Parent: "Whirlpool", Subsidiary: brand, ApplianceType: at,
				Interchangeable: true, Confidence: conf,
			})
		}
		// GE and Samsung share no platform with the Whirlpool family.
		rels = append(rels,
			BrandRelationship{Parent: "Whirlpool", Subsidiary: "GE", ApplianceType: at, Interchangeable: false, Confidence: 0.9},
			BrandRelationship{Parent: "Whirlpool", Subsidiary: "Samsung", ApplianceType: at, Interchangeable: false, Confidence: 0.9},
		)
	}
	return rels
}

// SeedParts returns reference part records.
func SeedParts() []Part {
	return []Part{
		{PartNumber: "PS11739035", ManufacturerNumber: "WPW10321304", Name: "Refrigerator Door Shelf Bin", Brand: "Whirlpool",
			ApplianceType: Refrigerator, Price: 44.95, InStock: true, InstallDifficulty: "Really Easy", InstallTime: "Less than 15 mins",
			Description: "Clear door bin that mounts on the inside of the refrigerator door.",
			URL:         "https://www.partselect.com/PS11739035.htm"},
		{PartNumber: "PS11752778", ManufacturerNumber: "WPW10195416", Name: "Refrigerator Door Shelf Bin", Brand: "Whirlpool",
			ApplianceType: Refrigerator, Price: 36.18, InStock: true, InstallDifficulty: "Really Easy", InstallTime: "Less than 15 mins",
			Description: "Door bin for side-by-side refrigerators."},
		{PartNumber: "PS11701542", ManufacturerNumber: "WPW10348269", Name: "Dishwasher Door Latch", Brand: "Whirlpool",
			ApplianceType: Dishwasher, Price: 29.87, InStock: true, InstallDifficulty: "Easy", InstallTime: "15 - 30 mins",
			Description: "Latch assembly that holds the dishwasher door closed and signals the control the door is shut."},
		{PartNumber: "PS3406971", ManufacturerNumber: "W10195416", Name: "Dishwasher Lower Dishrack Wheel", Brand: "Whirlpool",
			ApplianceType: Dishwasher, Price: 8.09, InStock: true, InstallDifficulty: "Really Easy", InstallTime: "Less than 15 mins",
			Description: "Wheel for the lower dishrack."},
		{PartNumber: "PS10065979", ManufacturerNumber: "W10712395", Name: "Dishwasher Upper Rack Adjuster Kit", Brand: "Whirlpool",
			ApplianceType: Dishwasher, Price: 40.22, InStock: true, InstallDifficulty: "Easy", InstallTime: "15 - 30 mins",
			Description: "Adjuster kit for the upper dishrack."},
		{PartNumber: "PS11746591", ManufacturerNumber: "WPW10482480", Name: "Dishwasher Drain Pump", Brand: "Whirlpool",
			ApplianceType: Dishwasher, Price: 61.45, InStock: true, InstallDifficulty: "Moderate", InstallTime: "30 - 60 mins",
			Description: "Pumps water out of the dishwasher at the end of each cycle. A failed pump leaves standing water."},
		{PartNumber: "PS11722130", ManufacturerNumber: "WP8558995", Name: "Dishwasher Door Gasket", Brand: "Whirlpool",
			ApplianceType: Dishwasher, Price: 32.10, InStock: true, InstallDifficulty: "Easy", InstallTime: "15 - 30 mins",
			Description: "Seals the dishwasher tub to stop leaking around the door."},
		{PartNumber: "PS12364199", ManufacturerNumber: "W10873791", Name: "Refrigerator Ice Maker Assembly", Brand: "Whirlpool",
			ApplianceType: Refrigerator, Price: 129.95, InStock: true, InstallDifficulty: "Easy", InstallTime: "15 - 30 mins",
			Description: "Replacement ice maker for freezers that stopped making ice."},
		{PartNumber: "PS2355119", ManufacturerNumber: "WR55X10942", Name: "Refrigerator Temperature Sensor", Brand: "GE",
			ApplianceType: Refrigerator, Price: 24.50, InStock: false, InstallDifficulty: "Easy", InstallTime: "15 - 30 mins",
			Description: "Thermistor that reports fresh food temperature. A bad sensor causes a fridge that is not cooling."},
		{PartNumber: "PS8260087", ManufacturerNumber: "DA97-12540G", Name: "Refrigerator Water Filter", Brand: "Samsung",
			ApplianceType: Universal, Price: 49.99, InStock: true, InstallDifficulty: "Really Easy", InstallTime: "Less than 15 mins",
			Description: "Inline water filter that fits any refrigerator or dishwasher supply line."},
	}
}

// SeedModels returns reference model records.
func SeedModels() []Model {
	return []Model{
		{ModelNumber: "WDT780SAEM1", Brand: "Whirlpool", ApplianceType: Dishwasher, Series: "WDT", Description: "Whirlpool built-in dishwasher"},
		{ModelNumber: "WDF520PADM7", Brand: "Whirlpool", ApplianceType: Dishwasher, Series: "WDF", Description: "Whirlpool front control dishwasher"},
		{ModelNumber: "ADB1400AWW0", Brand: "Admiral", ApplianceType: Dishwasher, Series: "ADB", Description: "Admiral built-in dishwasher"},
		{ModelNumber: "GDT695SSJ2SS", Brand: "GE", ApplianceType: Dishwasher, Series: "GDT", Description: "GE top control dishwasher"},
		{ModelNumber: "WRF555SDFZ09", Brand: "Whirlpool", ApplianceType: Refrigerator, Series: "WRF", Description: "Whirlpool French door refrigerator"},
		{ModelNumber: "WRS325SDHZ01", Brand: "Whirlpool", ApplianceType: Refrigerator, Series: "WRS", Description: "Whirlpool side-by-side refrigerator"},
		{ModelNumber: "106.51133211", Brand: "Kenmore", ApplianceType: Refrigerator, Series: "106.", Description: "Kenmore side-by-side refrigerator"},
		{ModelNumber: "KRFF507HPS01", Brand: "KitchenAid", ApplianceType: Refrigerator, Series: "KRFF", Description: "KitchenAid French door refrigerator"},
		{ModelNumber: "RF28HMEDBSR", Brand: "Samsung", ApplianceType: Refrigerator, Series: "RF", Description: "Samsung French door refrigerator"},
	}
}

// SeedRepairs returns reference repair guides.
func SeedRepairs() []Repair {
	return []Repair{
		{ID: "dw-not-draining", ApplianceType: Dishwasher, Symptom: "not draining", Title: "Dishwasher not draining",
			Description: "Clean the filter and check the drain hose for kinks before replacing the drain pump.",
			Difficulty:  "Moderate", PartNames: []string{"Drain Pump", "Drain Hose", "Check Valve"}},
		{ID: "dw-leaking", ApplianceType: Dishwasher, Symptom: "leaking", Title: "Dishwasher leaking",
			Description: "Inspect the door gasket and the water inlet valve. Worn gaskets are the most common cause.",
			Difficulty:  "Easy", PartNames: []string{"Door Gasket", "Water Inlet Valve"}},
		{ID: "dw-door-latch", ApplianceType: Dishwasher, Symptom: "door won't close", Title: "Dishwasher door won't close or latch",
			Description: "Check the rack alignment and the door latch assembly. A broken latch stops the door closing.",
			Difficulty:  "Easy", PartNames: []string{"Door Latch", "Door Strike"}},
		{ID: "dw-not-cleaning", ApplianceType: Dishwasher, Symptom: "not cleaning", Title: "Dishwasher not cleaning dishes",
			Description: "Clear the spray arms and check the wash pump and water temperature.",
			Difficulty:  "Moderate", PartNames: []string{"Spray Arm", "Wash Pump"}},
		{ID: "ref-not-cooling", ApplianceType: Refrigerator, Symptom: "not cooling", Title: "Refrigerator not cooling",
			Description: "Clean the condenser coils, then test the evaporator fan and the temperature sensor.",
			Difficulty:  "Moderate", PartNames: []string{"Evaporator Fan Motor", "Temperature Sensor", "Start Relay"}},
		{ID: "ref-ice-maker", ApplianceType: Refrigerator, Symptom: "ice maker not working", Title: "Ice maker not making ice",
			Description: "Confirm water supply and the inlet valve, then replace the ice maker assembly if it does not cycle.",
			Difficulty:  "Easy", PartNames: []string{"Ice Maker Assembly", "Water Inlet Valve"}},
		{ID: "ref-leaking", ApplianceType: Refrigerator, Symptom: "leaking", Title: "Refrigerator leaking water",
			Description: "Check the defrost drain and the water filter housing.",
			Difficulty:  "Easy", PartNames: []string{"Water Filter", "Defrost Drain"}},
		{ID: "ref-noisy", ApplianceType: Refrigerator, Symptom: "noisy", Title: "Refrigerator making noise",
			Description: "Noises usually come from the evaporator or condenser fan motors.",
			Difficulty:  "Moderate", PartNames: []string{"Evaporator Fan Motor", "Condenser Fan Motor"}},
	}
}

// SeedArticles returns reference articles.
func SeedArticles() []Article {
	return []Article{
		{ID: "how-to-clean-dishwasher-filter", Title: "How to clean a dishwasher filter", ApplianceType: Dishwasher,
			Summary: "Step by step cleaning of the filter assembly to fix draining and cleaning problems."},
		{ID: "dishwasher-door-latch-guide", Title: "Replacing a dishwasher door latch", ApplianceType: Dishwasher,
			Summary: "Remove the inner door panel, unplug the latch and fit the new assembly."},
		{ID: "fridge-not-cooling-checklist", Title: "Refrigerator not cooling: a checklist", ApplianceType: Refrigerator,
			Summary: "Coils, fans, sensors and the defrost system, in the order to check them."},
		{ID: "find-your-model-number", Title: "Where to find your appliance model number",
			Summary: "Model tags are inside the door frame on dishwashers and on the ceiling or side wall of refrigerators."},
	}
}

// seedLinks maps parts to the models they fit.
var seedLinks = map[string][]string{
	"PS11739035": {"WRF555SDFZ09", "WRS325SDHZ01", "106.51133211"},
	"PS11752778": {"WRS325SDHZ01"},
	"PS11701542": {"WDT780SAEM1", "WDF520PADM7", "ADB1400AWW0"},
	"PS3406971":  {"WDT780SAEM1", "WDF520PADM7"},
	"PS10065979": {"WDT780SAEM1"},
	"PS11746591": {"WDT780SAEM1", "WDF520PADM7", "ADB1400AWW0"},
	"PS11722130": {"WDT780SAEM1", "ADB1400AWW0"},
	"PS12364199": {"WRF555SDFZ09", "KRFF507HPS01"},
}

// Seed loads the reference data set into w.
func Seed(ctx context.Context, w Writer) error {
	for _, p := range SeedParts() {
		if err := w.UpsertPart(ctx, p); err != nil {
			return err
		}
	}
	for _, m := range SeedModels() {
		if err := w.UpsertModel(ctx, m); err != nil {
			return err
		}
	}
	for _, r := range SeedBrandRelationships() {
		if err := w.UpsertBrandRelationship(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range SeedRepairs() {
		if err := w.UpsertRepair(ctx, r); err != nil {
			return err
		}
	}
	for _, a := range SeedArticles() {
		if err := w.UpsertArticle(ctx, a); err != nil {
			return err
		}
	}
	for part, models := range seedLinks {
		for _, m := range models {
			if err := w.LinkPartModel(ctx, part, m); err != nil {
				return eris.Wrap(err, "catalog: seed links")
			}
		}
	}
	return nil
}
