package qatracker

const (
	QATrackerSheet     = "Pullus QA Tracker"
	BlastFreezingSheet = "Blast Freezing Tracker"
	DefinitionsSheet   = "Definition of Terms"

	DefaultFileName = "Pullus_QA_Tracker_Template.xlsx"
	DefaultRows     = 2000

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Column is a header cell and the width of its column.
type Column struct {
	Header string
	Width  float64
}

var QATrackerColumns = []Column{
	{"Date", 12},
	{"Purchase Officer", 18},
	{"Location", 15},
	{"Number of Birds", 14},
	{"Number of Slaughter Men", 14},
	{"Slaughter Start Time", 16},
	{"Slaughter End Time", 16},
	{"Slaughter Duration", 16},
	{"Slaughter Status", 16},
	{"Weighing Start Time", 16},
	{"Weighing Stop Time", 16},
	{"Weighing Duration", 15},
	{"Weighing Status", 15},
	{"Invoice Writing Start Time", 18},
	{"Invoice Writing Stop Time", 18},
	{"Invoice Writing Duration", 18},
	{"Invoice Writing Status", 18},
	{"Transportation Mode", 18},
	{"Logistics Pickup Time", 16},
	{"Receipt to Pickup Duration", 18},
	{"Logistics Status", 15},
	{"Cold Room Arrival Time", 18},
	{"Pickup to Cold Room Duration", 20},
	{"Transportation Status", 18},
	{"Number of Washing Personnel", 18},
	{"Washing Start Time", 16},
	{"Washing End Time", 16},
	{"Washing Duration", 15},
	{"Washing Status", 15},
	{"Blast Freezer Time", 16},
	{"Total Process Duration", 18},
	{"Comments", 20},
}

var BlastFreezingColumns = []Column{
	{"Date", 12},
	{"Arrival Time", 14},
	{"Blast Start Time", 16},
	{"Blast End Time", 16},
	{"Blast Duration", 14},
	{"Qty", 10},
	{"Target Temperature (°C)", 20},
	{"Actual Temperature (°C)", 20},
	{"Temperature Status", 16},
}

var DefinitionColumns = []Column{
	{"Column Name", 25},
	{"Description", 50},
	{"Type / Values", 40},
}

var (
	PurchaseOfficers = []string{
		"Abdulrasheed Rufai",
		"Theophilus Bulus",
		"Femi Abubakar",
		"Simon Agbosua",
		"Friday Shehu",
		"Victor Adeojo",
		"Alexander Baton",
		"Sabastine Peter",
	}
	TransportationModes    = []string{"Keke", "Van", "Commercial Bus", "Pullus Bus", "Bike"}
	LogisticsStatuses      = []string{"Ontime", "Early", "Delayed", "Very Delayed"}
	TransportationStatuses = []string{"Good", "Manageable", "Bad", "Dangerous"}
)

// Dropdown restricts a column of the data rows to a fixed list.
type Dropdown struct {
	Column string
	Values []string
}

var QATrackerDropdowns = []Dropdown{
	{Column: "B", Values: PurchaseOfficers},
	{Column: "R", Values: TransportationModes},
	{Column: "U", Values: LogisticsStatuses},
	{Column: "X", Values: TransportationStatuses},
}

// Definition is one row of the Definition of Terms sheet. A definition
// without a column name is rendered as a merged section row.
type Definition struct {
	Column      string
	Description string
	Values      string
}

func (d Definition) IsSection() bool {
	return d.Column == ""
}

var Definitions = []Definition{
	{"", "PULLUS QA TRACKER", ""},
	{"Date", "Date of processing operation", "Date format: DD-MMM-YYYY"},
	{"Purchase Officer", "Officer responsible for the purchase operation", "Dropdown: 8 officers"},
	{"Location", "Processing location/center", "Text entry"},
	{"Number of Birds", "Quantity of birds processed", "Number"},
	{"Number of Slaughter Men", "Personnel count for slaughter", "Number"},
	{"Slaughter Start Time", "When slaughter operation begins", "Time (12-hour AM/PM)"},
	{"Slaughter End Time", "When slaughter operation ends", "Time (12-hour AM/PM)"},
	{"Slaughter Duration", "Time taken for slaughter", "Auto-calculated format: 1hr 23min"},
	{"Slaughter Status", "Quality status of slaughter timing", "Auto: Good(≤2h), Manageable(2-3h), Bad(3-4h), Dangerous(>4h)"},
	{"Weighing Start Time", "When bird weighing begins", "Time (12-hour AM/PM)"},
	{"Weighing Stop Time", "When bird weighing ends", "Time (12-hour AM/PM)"},
	{"Weighing Duration", "Time taken for weighing", "Auto-calculated format: 0hr 5min"},
	{"Weighing Status", "Quality status of weighing timing", "Auto: Good(≤5min), Manageable(5-10min), Bad(10-15min), Dangerous(>15min)"},
	{"Invoice Writing Start Time", "When invoice writing begins", "Time (12-hour AM/PM)"},
	{"Invoice Writing Stop Time", "When invoice writing ends", "Time (12-hour AM/PM)"},
	{"Invoice Writing Duration", "Time taken for invoice writing", "Auto-calculated format: 0hr 5min"},
	{"Invoice Writing Status", "Quality status of invoice writing timing", "Auto: Good(≤5min), Manageable(5-10min), Bad(10-15min), Dangerous(>15min)"},
	{"Transportation Mode", "Vehicle type used for transport", "Dropdown: Keke, Van, Commercial Bus, Pullus Bus, Bike"},
	{"Logistics Pickup Time", "When logistics picks up birds", "Time (12-hour AM/PM)"},
	{"Receipt to Pickup Duration", "Time from invoice completion to logistics pickup", "Auto-calculated format: 0hr 47min"},
	{"Logistics Status", "Timeliness of logistics pickup", "Manual Dropdown: Ontime, Early, Delayed, Very Delayed"},
	{"Cold Room Arrival Time", "When birds arrive at cold storage", "Time (12-hour AM/PM)"},
	{"Pickup to Cold Room Duration", "Transport time to cold room", "Auto-calculated format: 1hr 9min"},
	{"Transportation Status", "Quality of transportation timing", "Manual Dropdown: Good, Manageable, Bad, Dangerous"},
	{"Number of Washing Personnel", "Personnel count for washing", "Number"},
	{"Washing Start Time", "When washing begins", "Time (12-hour AM/PM)"},
	{"Washing End Time", "When washing ends", "Time (12-hour AM/PM)"},
	{"Washing Duration", "Time taken for washing", "Auto-calculated format: 0hr 30min"},
	{"Washing Status", "Quality status of washing timing", "Auto: Good(≤30min), Manageable(31-45min), Bad(>45min)"},
	{"Blast Freezer Time", "When birds enter blast freezer", "Time (12-hour AM/PM)"},
	{"Total Process Duration", "Total time from start to blast freezer", "Auto-calculated format: 3hr 24min"},
	{"Comments", "Additional notes and observations", "Text entry"},
	{"", "", ""},
	{"", "BLAST FREEZING TRACKER", ""},
	{"Date", "Date of blast freezing", "Date format: DD-MMM-YYYY"},
	{"Arrival Time", "When birds arrive at cold room", "Time (12-hour AM/PM)"},
	{"Blast Start Time", "When blast freezing begins", "Time (12-hour AM/PM)"},
	{"Blast End Time", "When blast freezing ends", "Time (12-hour AM/PM)"},
	{"Blast Duration", "Time in blast freezer", "Auto-calculated format: 5hr 0min"},
	{"Qty", "Quantity of birds in batch", "Number"},
	{"Target Temperature (°C)", "Target blast temperature", "Number (default -20°C)"},
	{"Actual Temperature (°C)", "Actual recorded temperature", "Number with °C"},
	{"Temperature Status", "Temperature quality check", "Auto: Good(-22°C to -18°C), Bad(outside range)"},
}
