package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"tendermatch/internal"
	"tendermatch/internal/tabular"
	"tendermatch/internal/util"
)

// CatalogSchema returns the upload column vocabulary for a service category.
// Aliases cover the header spellings seen across vendor pricing sheets.
func CatalogSchema(category internal.ServiceCategory) tabular.Schema {
	common := []tabular.Field{
		{Name: "manufacturer", Aliases: []string{"Manufacturer", "Make", "Brand"}, Required: true},
		{Name: "model", Aliases: []string{"Model", "Product", "Machine Model"}, Required: true},
		{Name: "category", Aliases: []string{"Category", "Machine Category", "Type"}, Required: category == internal.CategoryPhotocopier},
		{Name: "description", Aliases: []string{"Description", "Details"}},
		{Name: "features", Aliases: []string{"Features", "Feature Set", "Options"}},
		{Name: "status", Aliases: []string{"Status", "State"}},
		{Name: "inStock", Aliases: []string{"In Stock", "Stock", "Available"}},
		{Name: "leadTimeDays", Aliases: []string{"Lead Time Days", "Lead Time", "Delivery Days"}},
		{Name: "regions", Aliases: []string{"Regions", "Regions Covered", "Coverage"}},
		{Name: "industries", Aliases: []string{"Industries", "Sectors"}},
	}

	switch category {
	case internal.CategoryPhotocopier:
		return tabular.Schema{Fields: append(common,
			tabular.Field{Name: "speed", Aliases: []string{"Speed", "PPM", "Pages Per Minute"}},
			tabular.Field{Name: "paperSize", Aliases: []string{"Paper Size", "Paper Primary", "Primary Paper"}},
			tabular.Field{Name: "paperSupported", Aliases: []string{"Paper Supported", "Supported Sizes"}},
			tabular.Field{Name: "minVolume", Aliases: []string{"Min Volume", "Minimum Volume", "min_volume"}},
			tabular.Field{Name: "maxVolume", Aliases: []string{"Max Volume", "Maximum Volume", "max_volume"}},
			tabular.Field{Name: "machineCost", Aliases: []string{"Cost", "Machine Cost", "Hardware Cost"}},
			tabular.Field{Name: "installation", Aliases: []string{"Installation", "Install Cost", "Installation Cost"}},
			tabular.Field{Name: "profitMargin", Aliases: []string{"Profit Margin", "Margin", "profit_margin"}, Required: true},
			tabular.Field{Name: "totalMachineCost", Aliases: []string{"Total Machine Cost", "Total Cost", "total_machine_cost"}},
			tabular.Field{Name: "cpcMono", Aliases: []string{"CPC Mono", "Mono CPC", "cpc_mono_pence", "A4 Mono CPC"}, Required: true},
			tabular.Field{Name: "cpcColour", Aliases: []string{"CPC Colour", "Colour CPC", "cpc_colour_pence", "A4 Colour CPC"}, Required: true},
			tabular.Field{Name: "cpcA3Mono", Aliases: []string{"A3 Mono CPC", "cpc_a3_mono_pence"}},
			tabular.Field{Name: "cpcA3Colour", Aliases: []string{"A3 Colour CPC", "cpc_a3_colour_pence"}},
			tabular.Field{Name: "cpcSRA3Mono", Aliases: []string{"SRA3 Mono CPC", "cpc_sra3_mono_pence"}},
			tabular.Field{Name: "cpcSRA3Colour", Aliases: []string{"SRA3 Colour CPC", "cpc_sra3_colour_pence"}},
			tabular.Field{Name: "leaseTerms", Aliases: []string{"Lease Terms", "Lease Schedule", "lease_terms"}},
			tabular.Field{Name: "auxiliaries", Aliases: []string{"Auxiliaries", "Extras", "Add Ons"}},
		)}
	case internal.CategoryTelecoms:
		return tabular.Schema{Fields: append(common,
			tabular.Field{Name: "systemType", Aliases: []string{"System Type", "System"}},
			tabular.Field{Name: "perUserMonthly", Aliases: []string{"Per User Monthly", "Per User", "User Monthly Cost"}, Required: true},
			tabular.Field{Name: "minUsers", Aliases: []string{"Min Users", "Minimum Users"}},
			tabular.Field{Name: "maxUsers", Aliases: []string{"Max Users", "Maximum Users"}},
			tabular.Field{Name: "handsetPrice", Aliases: []string{"Handset Price", "Handset Cost"}},
			tabular.Field{Name: "callPackage", Aliases: []string{"Call Package", "Included Calls"}},
			tabular.Field{Name: "broadbandIncluded", Aliases: []string{"Broadband Included", "Broadband"}},
			tabular.Field{Name: "setupFee", Aliases: []string{"Setup Fee", "Setup Cost"}},
			tabular.Field{Name: "contractTermMonths", Aliases: []string{"Contract Term", "Term Months"}},
		)}
	case internal.CategoryCCTV:
		return tabular.Schema{Fields: append(common,
			tabular.Field{Name: "systemType", Aliases: []string{"System Type", "System"}},
			tabular.Field{Name: "perCameraCost", Aliases: []string{"Per Camera Cost", "Camera Cost", "Cost Per Camera"}, Required: true},
			tabular.Field{Name: "resolution", Aliases: []string{"Resolution"}},
			tabular.Field{Name: "minCameras", Aliases: []string{"Min Cameras", "Minimum Cameras"}},
			tabular.Field{Name: "maxCameras", Aliases: []string{"Max Cameras", "Maximum Cameras"}},
			tabular.Field{Name: "nvrCost", Aliases: []string{"NVR Cost"}},
			tabular.Field{Name: "nvrChannels", Aliases: []string{"NVR Channels"}},
			tabular.Field{Name: "installPerCamera", Aliases: []string{"Install Per Camera", "Installation Per Camera"}},
			tabular.Field{Name: "installFlat", Aliases: []string{"Install Flat", "Installation Flat"}},
			tabular.Field{Name: "monitoringMonthly", Aliases: []string{"Monitoring Monthly", "Monthly Monitoring"}},
			tabular.Field{Name: "cloudPerCamera", Aliases: []string{"Cloud Per Camera", "Cloud Storage Per Camera"}},
			tabular.Field{Name: "cloudFlat", Aliases: []string{"Cloud Flat", "Cloud Storage Monthly"}},
		)}
	case internal.CategoryIT:
		return tabular.Schema{Fields: append(common,
			tabular.Field{Name: "serviceType", Aliases: []string{"Service Type", "Support Type"}},
			tabular.Field{Name: "perUserMonthly", Aliases: []string{"Per User Monthly", "Per User", "User Monthly Cost"}},
			tabular.Field{Name: "perDeviceMonthly", Aliases: []string{"Per Device Monthly", "Device Monthly Cost"}},
			tabular.Field{Name: "projectDayRate", Aliases: []string{"Project Day Rate", "Day Rate"}},
			tabular.Field{Name: "minUsers", Aliases: []string{"Min Users", "Minimum Users"}},
			tabular.Field{Name: "maxUsers", Aliases: []string{"Max Users", "Maximum Users"}},
			tabular.Field{Name: "serverMonthly", Aliases: []string{"Server Monthly", "Server Management Monthly"}},
			tabular.Field{Name: "includedServices", Aliases: []string{"Included Services", "Services"}},
			tabular.Field{Name: "m365Included", Aliases: []string{"M365 Included", "Microsoft 365"}},
			tabular.Field{Name: "responseTimeSLA", Aliases: []string{"Response Time SLA", "SLA"}},
			tabular.Field{Name: "supportHours", Aliases: []string{"Support Hours", "Hours"}},
			tabular.Field{Name: "accreditations", Aliases: []string{"Accreditations", "Certifications"}},
		)}
	default:
		return tabular.Schema{Fields: common}
	}
}

// CPC sanity windows, pence per page.
const (
	cpcMonoMin   = 0.2
	cpcMonoMax   = 3.0
	cpcColourMin = 2.0
	cpcColourMax = 15.0
)

type normalizer struct {
	row      tabular.Row
	warnings []internal.FieldWarning
	errors   []internal.RowError
}

func (n *normalizer) warn(field, message string) {
	n.warnings = append(n.warnings, internal.FieldWarning{Row: n.row.Number, Field: field, Message: message})
}

func (n *normalizer) fail(field, message string) {
	n.errors = append(n.errors, internal.RowError{Row: n.row.Number, Field: field, Message: message})
}

func (n *normalizer) requiredString(column, fieldPath string) string {
	v, ok := n.row.Get(column)
	if !ok {
		n.fail(fieldPath, "Missing required field")
		return ""
	}
	return v
}

func (n *normalizer) requiredMoney(column, fieldPath string) float64 {
	v, ok := n.row.Get(column)
	if !ok {
		n.fail(fieldPath, "Missing required field")
		return 0
	}
	parsed, err := util.ParseMoney(v)
	if err != nil {
		n.fail(fieldPath, fmt.Sprintf("Invalid number %q", v))
		return 0
	}
	return parsed
}

func (n *normalizer) optionalMoney(column, fieldPath string) (float64, bool) {
	v, ok := n.row.Get(column)
	if !ok {
		return 0, false
	}
	parsed, err := util.ParseMoney(v)
	if err != nil {
		n.warn(fieldPath, fmt.Sprintf("Invalid number %q ignored", v))
		return 0, false
	}
	return parsed, true
}

func (n *normalizer) optionalInt(column, fieldPath string) (int, bool) {
	v, ok := n.row.Get(column)
	if !ok {
		return 0, false
	}
	parsed, err := util.ParseInt(v)
	if err != nil {
		n.warn(fieldPath, fmt.Sprintf("Invalid number %q ignored", v))
		return 0, false
	}
	return parsed, true
}

// Normalize converts one raw upload row into a Product, or into row errors
// when a required field is missing or an invariant cannot be repaired.
func Normalize(row tabular.Row, vendorID string, category internal.ServiceCategory) (*internal.Product, []internal.FieldWarning, []internal.RowError) {
	n := &normalizer{row: row}

	p := &internal.Product{
		VendorID:     vendorID,
		Manufacturer: n.requiredString("manufacturer", "manufacturer"),
		Model:        n.requiredString("model", "model"),
		Category:     category,
		Status:       internal.StatusActive,
	}

	if v, ok := row.Get("description"); ok {
		p.Description = v
	}
	if v, ok := row.Get("features"); ok {
		p.Features = util.SplitList(v)
	}
	if v, ok := row.Get("regions"); ok {
		p.RegionsCovered = util.SplitList(v)
	}
	if v, ok := row.Get("industries"); ok {
		p.Industries = util.SplitList(v)
	}
	if v, ok := row.Get("status"); ok {
		switch internal.ProductStatus(strings.ToLower(v)) {
		case internal.StatusActive, internal.StatusDraft, internal.StatusWithdrawn:
			p.Status = internal.ProductStatus(strings.ToLower(v))
		default:
			n.warn("status", fmt.Sprintf("Unknown status %q; defaulting to active", v))
		}
	}
	if v, ok := row.Get("inStock"); ok {
		p.Availability.InStock = parseBool(v)
	}
	if days, ok := n.optionalInt("leadTimeDays", "availability.leadTimeDays"); ok {
		p.Availability.LeadTimeDays = days
	}

	switch category {
	case internal.CategoryPhotocopier:
		p.Photocopier = n.photocopier()
	case internal.CategoryTelecoms:
		p.Telecoms = n.telecoms()
	case internal.CategoryCCTV:
		p.CCTV = n.cctv()
	case internal.CategoryIT:
		p.IT = n.it()
	case internal.CategorySolicitor, internal.CategoryAccountant:
		// Professional-services listings carry no pricing subrecord yet.
	default:
		n.fail("category", fmt.Sprintf("Unknown service category %q", category))
	}

	if len(n.errors) > 0 {
		return nil, n.warnings, n.errors
	}
	return p, n.warnings, nil
}

func (n *normalizer) photocopier() *internal.PhotocopierDetails {
	d := &internal.PhotocopierDetails{}

	// Machine category drives the primary paper size; unknown values coerce
	// to the A4 default with a warning, never a rejection.
	machineCategory := n.requiredString("category", "category")
	d.PaperPrimary = internal.PaperA4
	if machineCategory != "" {
		d.PaperPrimary = paperFromCategory(machineCategory, n)
	}
	if v, ok := n.row.Get("paperSize"); ok {
		d.PaperPrimary = parsePaperSize(v, n)
	}
	d.PaperSupported = internal.PaperClosure(d.PaperPrimary)
	if v, ok := n.row.Get("paperSupported"); ok {
		for _, raw := range util.SplitList(v) {
			size := parsePaperSize(raw, n)
			if !containsPaper(d.PaperSupported, size) {
				d.PaperSupported = append(d.PaperSupported, size)
			}
		}
	}

	maxVol, haveMax := n.optionalInt("maxVolume", "volume.maxVolume")
	minVol, haveMin := n.optionalInt("minVolume", "volume.minVolume")
	speed, haveSpeed := n.optionalInt("speed", "speed")

	if !haveMax {
		if haveSpeed {
			maxVol = volumeForSpeed(speed)
			n.warn("volume.maxVolume", fmt.Sprintf("Missing max volume; derived %d from speed", maxVol))
		} else {
			maxVol = 10000
			n.warn("volume.maxVolume", "Missing max volume; defaulted to 10000")
		}
	}
	if !haveMin {
		minVol = maxVol / 10
		if minVol < 1 {
			minVol = 1
		}
		n.warn("volume.minVolume", fmt.Sprintf("Missing min volume; defaulted to %d", minVol))
	}
	if minVol <= 0 || maxVol <= 0 {
		n.fail("volume", fmt.Sprintf("Volumes must be positive (min=%d max=%d)", minVol, maxVol))
		return d
	}
	if minVol >= maxVol {
		n.fail("volume", fmt.Sprintf("Min volume %d must be below max volume %d", minVol, maxVol))
		return d
	}
	d.MinVolume = minVol
	d.MaxVolume = maxVol
	d.VolumeBand = internal.VolumeBandFor(maxVol)

	if !haveSpeed {
		speed = internal.SuggestedSpeed(maxVol)
		n.warn("speed", fmt.Sprintf("Missing speed; suggested %d ppm for %d pages/month", speed, maxVol))
	}
	if speed <= 0 {
		n.fail("speed", fmt.Sprintf("Speed must be positive, got %d", speed))
		return d
	}
	d.Speed = speed

	suggested := internal.SuggestedSpeed(maxVol)
	if float64(speed) < 0.7*float64(suggested) {
		n.warn("speed", fmt.Sprintf("Speed %d ppm is low for %d pages/month (suggested %d)", speed, maxVol, suggested))
	} else if float64(speed) > 3*float64(suggested) {
		n.warn("speed", fmt.Sprintf("Speed %d ppm is high for %d pages/month (suggested %d)", speed, maxVol, suggested))
	}

	if v, ok := n.optionalMoney("machineCost", "costs.machineCost"); ok {
		d.MachineCost = v
	}
	if v, ok := n.optionalMoney("installation", "costs.installation"); ok {
		d.Installation = v
	}
	d.ProfitMargin = n.requiredMoney("profitMargin", "costs.profitMargin")

	d.TotalMachineCost = util.Round2(d.MachineCost + d.Installation + d.ProfitMargin)
	if raw, ok := n.optionalMoney("totalMachineCost", "costs.totalMachineCost"); ok {
		if diff := raw - d.TotalMachineCost; diff > 1 || diff < -1 {
			n.warn("costs.totalMachineCost", fmt.Sprintf("Supplied total %0.2f differs from computed %0.2f; recomputed", raw, d.TotalMachineCost))
		}
	}

	d.CPC.A4Mono = n.requiredMoney("cpcMono", "costs.cpcRates.A4Mono")
	d.CPC.A4Colour = n.requiredMoney("cpcColour", "costs.cpcRates.A4Colour")
	if len(n.errors) == 0 {
		if d.CPC.A4Mono < cpcMonoMin || d.CPC.A4Mono > cpcMonoMax {
			n.warn("costs.cpcRates.A4Mono", fmt.Sprintf("Mono CPC %.2fp outside the expected %.1f-%.1fp window", d.CPC.A4Mono, cpcMonoMin, cpcMonoMax))
		}
		if d.CPC.A4Colour < cpcColourMin || d.CPC.A4Colour > cpcColourMax {
			n.warn("costs.cpcRates.A4Colour", fmt.Sprintf("Colour CPC %.2fp outside the expected %.1f-%.1fp window", d.CPC.A4Colour, cpcColourMin, cpcColourMax))
		}
		if d.CPC.A4Colour <= d.CPC.A4Mono {
			n.warn("costs.cpcRates", fmt.Sprintf("Colour CPC %.2fp should exceed mono CPC %.2fp", d.CPC.A4Colour, d.CPC.A4Mono))
		}
	}
	if v, ok := n.optionalMoney("cpcA3Mono", "costs.cpcRates.A3Mono"); ok {
		d.CPC.A3Mono = &v
	}
	if v, ok := n.optionalMoney("cpcA3Colour", "costs.cpcRates.A3Colour"); ok {
		d.CPC.A3Colour = &v
	}
	if v, ok := n.optionalMoney("cpcSRA3Mono", "costs.cpcRates.SRA3Mono"); ok {
		d.CPC.SRA3Mono = &v
	}
	if v, ok := n.optionalMoney("cpcSRA3Colour", "costs.cpcRates.SRA3Colour"); ok {
		d.CPC.SRA3Colour = &v
	}

	d.LeaseTerms = n.leaseTerms()
	d.Auxiliaries = n.auxiliaries()
	return d
}

func (n *normalizer) telecoms() *internal.TelecomsDetails {
	d := &internal.TelecomsDetails{SystemType: "VoIP"}
	if v, ok := n.row.Get("systemType"); ok {
		d.SystemType = v
	}
	d.PerUserMonthly = n.requiredMoney("perUserMonthly", "pricing.perUserMonthly")
	d.MinUsers, d.MaxUsers = n.capacityWindow("minUsers", "maxUsers", "users", 1, 100)
	if v, ok := n.optionalMoney("handsetPrice", "pricing.handsetPrice"); ok {
		d.HandsetPrice = v
	}
	if v, ok := n.row.Get("callPackage"); ok {
		d.CallPackage = v
	}
	if v, ok := n.row.Get("broadbandIncluded"); ok {
		d.BroadbandIncluded = parseBool(v)
	}
	if v, ok := n.optionalMoney("setupFee", "pricing.setupFee"); ok {
		d.SetupFee = v
	}
	if v, ok := n.optionalInt("contractTermMonths", "pricing.contractTermMonths"); ok {
		d.ContractTermMonths = v
	}
	if v, ok := n.row.Get("features"); ok {
		d.Features = util.SplitList(v)
	}
	return d
}

func (n *normalizer) cctv() *internal.CCTVDetails {
	d := &internal.CCTVDetails{SystemType: "IP"}
	if v, ok := n.row.Get("systemType"); ok {
		d.SystemType = v
	}
	d.PerCameraCost = n.requiredMoney("perCameraCost", "pricing.perCameraCost")
	d.MinCameras, d.MaxCameras = n.capacityWindow("minCameras", "maxCameras", "cameras", 1, 64)
	if v, ok := n.row.Get("resolution"); ok {
		d.Resolution = v
	}
	if v, ok := n.optionalMoney("nvrCost", "pricing.nvrCost"); ok {
		d.NVRCost = &v
	}
	if v, ok := n.optionalInt("nvrChannels", "pricing.nvrChannels"); ok {
		d.NVRChannels = &v
	}
	if v, ok := n.optionalMoney("installPerCamera", "pricing.installPerCamera"); ok {
		d.InstallPerCamera = &v
	}
	if v, ok := n.optionalMoney("installFlat", "pricing.installFlat"); ok {
		d.InstallFlat = &v
	}
	if v, ok := n.optionalMoney("monitoringMonthly", "pricing.monitoringMonthly"); ok {
		d.MonitoringMonthly = &v
	}
	if v, ok := n.optionalMoney("cloudPerCamera", "pricing.cloudPerCamera"); ok {
		d.CloudPerCamera = &v
	}
	if v, ok := n.optionalMoney("cloudFlat", "pricing.cloudFlat"); ok {
		d.CloudFlat = &v
	}
	return d
}

func (n *normalizer) it() *internal.ITDetails {
	d := &internal.ITDetails{ServiceType: "Fully Managed"}
	if v, ok := n.row.Get("serviceType"); ok {
		switch strings.ToLower(v) {
		case "fully managed":
			d.ServiceType = "Fully Managed"
		case "co-managed", "comanaged":
			d.ServiceType = "Co-Managed"
		case "ad-hoc", "adhoc", "ad hoc":
			d.ServiceType = "Ad-hoc"
		default:
			n.warn("serviceType", fmt.Sprintf("Unknown service type %q; defaulting to Fully Managed", v))
		}
	}
	if v, ok := n.optionalMoney("perUserMonthly", "pricing.perUserMonthly"); ok {
		d.PerUserMonthly = &v
	}
	if v, ok := n.optionalMoney("perDeviceMonthly", "pricing.perDeviceMonthly"); ok {
		d.PerDeviceMonthly = &v
	}
	if v, ok := n.optionalMoney("projectDayRate", "pricing.projectDayRate"); ok {
		d.ProjectDayRate = &v
	}
	if d.PerUserMonthly == nil && d.ProjectDayRate == nil {
		n.fail("pricing", "Missing required field: one of perUserMonthly or projectDayRate")
	}
	d.MinUsers, d.MaxUsers = n.capacityWindow("minUsers", "maxUsers", "users", 1, 250)
	if v, ok := n.optionalMoney("serverMonthly", "pricing.serverMonthly"); ok {
		d.ServerMonthly = &v
	}
	if v, ok := n.row.Get("includedServices"); ok {
		d.IncludedServices = util.SplitList(v)
	}
	if v, ok := n.row.Get("m365Included"); ok {
		d.M365Included = parseBool(v)
	}
	if v, ok := n.row.Get("responseTimeSLA"); ok {
		d.ResponseTimeSLA = v
	}
	if v, ok := n.row.Get("supportHours"); ok {
		d.SupportHours = v
	}
	if v, ok := n.row.Get("accreditations"); ok {
		d.Accreditations = util.SplitList(v)
	}
	return d
}

func (n *normalizer) capacityWindow(minColumn, maxColumn, fieldPath string, defaultMin, defaultMax int) (int, int) {
	minV, haveMin := n.optionalInt(minColumn, fieldPath+".min")
	maxV, haveMax := n.optionalInt(maxColumn, fieldPath+".max")
	if !haveMin {
		minV = defaultMin
	}
	if !haveMax {
		maxV = defaultMax
	}
	if minV > maxV {
		n.fail(fieldPath, fmt.Sprintf("Minimum %d exceeds maximum %d", minV, maxV))
	}
	return minV, maxV
}

// leaseTerms parses either a JSON array or the compact "36:0.6,48:0.55" form.
// Entries with margins outside (0,1) are dropped with a warning; an empty
// result falls back to the default schedule.
func (n *normalizer) leaseTerms() []internal.LeaseTerm {
	raw, ok := n.row.Get("leaseTerms")
	if !ok {
		return internal.DefaultLeaseTerms()
	}

	var terms []internal.LeaseTerm
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &terms); err != nil {
			n.warn("leaseTerms", fmt.Sprintf("Invalid lease terms JSON: %v; using default schedule", err))
			return internal.DefaultLeaseTerms()
		}
	} else {
		for _, part := range util.SplitList(raw) {
			bits := strings.SplitN(part, ":", 2)
			if len(bits) != 2 {
				n.warn("leaseTerms", fmt.Sprintf("Unparseable lease term %q skipped", part))
				continue
			}
			months, merr := util.ParseInt(bits[0])
			margin, gerr := util.ParseMoney(bits[1])
			if merr != nil || gerr != nil {
				n.warn("leaseTerms", fmt.Sprintf("Unparseable lease term %q skipped", part))
				continue
			}
			terms = append(terms, internal.LeaseTerm{TermMonths: months, Margin: margin})
		}
	}

	valid := terms[:0]
	for _, t := range terms {
		if t.TermMonths <= 0 || t.Margin <= 0 || t.Margin >= 1 {
			n.warn("leaseTerms", fmt.Sprintf("Lease term %d:%g outside valid range skipped", t.TermMonths, t.Margin))
			continue
		}
		valid = append(valid, t)
	}
	if len(valid) == 0 {
		return internal.DefaultLeaseTerms()
	}
	return valid
}

// auxiliaries parses a JSON array or the compact "item:price" form,
// dropping zero-priced entries.
func (n *normalizer) auxiliaries() []internal.Auxiliary {
	raw, ok := n.row.Get("auxiliaries")
	if !ok {
		return nil
	}

	var aux []internal.Auxiliary
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &aux); err != nil {
			n.warn("auxiliaries", fmt.Sprintf("Invalid auxiliaries JSON: %v; ignored", err))
			return nil
		}
	} else {
		for _, part := range util.SplitList(raw) {
			idx := strings.LastIndex(part, ":")
			if idx <= 0 {
				n.warn("auxiliaries", fmt.Sprintf("Unparseable auxiliary %q skipped", part))
				continue
			}
			price, err := util.ParseMoney(part[idx+1:])
			if err != nil {
				n.warn("auxiliaries", fmt.Sprintf("Unparseable auxiliary %q skipped", part))
				continue
			}
			aux = append(aux, internal.Auxiliary{Item: strings.TrimSpace(part[:idx]), Price: price})
		}
	}

	out := aux[:0]
	for _, a := range aux {
		if a.Price > 0 && a.Item != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func paperFromCategory(machineCategory string, n *normalizer) internal.PaperSize {
	upper := strings.ToUpper(machineCategory)
	switch {
	case strings.Contains(upper, "SRA3"):
		return internal.PaperSRA3
	case strings.Contains(upper, "A3"):
		return internal.PaperA3
	case strings.Contains(upper, "A4"):
		return internal.PaperA4
	default:
		n.warn("category", fmt.Sprintf("Unknown machine category %q; defaulting to A4 MFP", machineCategory))
		return internal.PaperA4
	}
}

func parsePaperSize(raw string, n *normalizer) internal.PaperSize {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "A4":
		return internal.PaperA4
	case "A3":
		return internal.PaperA3
	case "SRA3":
		return internal.PaperSRA3
	default:
		n.warn("paperSize", fmt.Sprintf("Unknown paper size %q; defaulting to A4", raw))
		return internal.PaperA4
	}
}

func containsPaper(sizes []internal.PaperSize, size internal.PaperSize) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// volumeForSpeed inverts the suggested-speed table for rows that carry a
// speed but no volume window.
func volumeForSpeed(speed int) int {
	switch {
	case speed <= 20:
		return 6000
	case speed <= 25:
		return 13000
	case speed <= 30:
		return 20000
	case speed <= 35:
		return 30000
	case speed <= 45:
		return 40000
	case speed <= 55:
		return 50000
	default:
		return 60000
	}
}
