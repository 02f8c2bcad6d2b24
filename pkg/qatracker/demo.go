package qatracker

import "time"

type cellValue struct {
	column string
	value  any
}

// QARecord is one processing operation on the QA tracker sheet.
// Times are entered as "6:30 AM" text, the way operators type them.
type QARecord struct {
	Date             time.Time
	Officer          string
	Location         string
	Birds            int
	SlaughterMen     int
	SlaughterStart   string
	SlaughterEnd     string
	WeighingStart    string
	WeighingStop     string
	InvoiceStart     string
	InvoiceStop      string
	TransportMode    string
	PickupTime       string
	LogisticsStatus  string
	ColdRoomArrival  string
	TransportStatus  string
	WashingPersonnel int
	WashingStart     string
	WashingEnd       string
	BlastFreezerTime string
	Comments         string
}

func (r QARecord) cells() []cellValue {
	return []cellValue{
		{"A", r.Date},
		{"B", r.Officer},
		{"C", r.Location},
		{"D", r.Birds},
		{"E", r.SlaughterMen},
		{"F", r.SlaughterStart},
		{"G", r.SlaughterEnd},
		{"J", r.WeighingStart},
		{"K", r.WeighingStop},
		{"N", r.InvoiceStart},
		{"O", r.InvoiceStop},
		{"R", r.TransportMode},
		{"S", r.PickupTime},
		{"U", r.LogisticsStatus},
		{"V", r.ColdRoomArrival},
		{"X", r.TransportStatus},
		{"Y", r.WashingPersonnel},
		{"Z", r.WashingStart},
		{"AA", r.WashingEnd},
		{"AD", r.BlastFreezerTime},
		{"AF", r.Comments},
	}
}

// BlastRecord is one batch on the blast freezing sheet.
type BlastRecord struct {
	Date              time.Time
	ArrivalTime       string
	BlastStart        string
	BlastEnd          string
	Qty               int
	TargetTemperature int
	ActualTemperature int
}

func (r BlastRecord) cells() []cellValue {
	return []cellValue{
		{"A", r.Date},
		{"B", r.ArrivalTime},
		{"C", r.BlastStart},
		{"D", r.BlastEnd},
		{"F", r.Qty},
		{"G", r.TargetTemperature},
		{"H", r.ActualTemperature},
	}
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

// DemoQARecords fill the first data rows of a fresh template.
var DemoQARecords = []QARecord{
	{
		Date: day(15), Officer: "Abdulrasheed Rufai", Location: "Ikeja Processing Center", Birds: 500, SlaughterMen: 4,
		SlaughterStart: "6:30 AM", SlaughterEnd: "8:15 AM", WeighingStart: "8:20 AM", WeighingStop: "8:24 AM",
		InvoiceStart: "8:25 AM", InvoiceStop: "8:29 AM", TransportMode: "Pullus Bus", PickupTime: "8:35 AM",
		LogisticsStatus: "Ontime", ColdRoomArrival: "9:15 AM", TransportStatus: "Good", WashingPersonnel: 3,
		WashingStart: "9:20 AM", WashingEnd: "9:50 AM", BlastFreezerTime: "10:00 AM",
		Comments: "Smooth operation, all targets met",
	},
	{
		Date: day(16), Officer: "Theophilus Bulus", Location: "Surulere Hub", Birds: 750, SlaughterMen: 3,
		SlaughterStart: "7:00 AM", SlaughterEnd: "9:30 AM", WeighingStart: "9:40 AM", WeighingStop: "9:48 AM",
		InvoiceStart: "9:50 AM", InvoiceStop: "9:58 AM", TransportMode: "Van", PickupTime: "10:05 AM",
		LogisticsStatus: "Delayed", ColdRoomArrival: "10:45 AM", TransportStatus: "Manageable", WashingPersonnel: 2,
		WashingStart: "10:50 AM", WashingEnd: "11:30 AM", BlastFreezerTime: "11:45 AM",
		Comments: "Slight delay in logistics pickup",
	},
	{
		Date: day(17), Officer: "Femi Abubakar", Location: "Yaba Station", Birds: 300, SlaughterMen: 2,
		SlaughterStart: "8:00 AM", SlaughterEnd: "9:45 AM", WeighingStart: "9:50 AM", WeighingStop: "9:53 AM",
		InvoiceStart: "9:54 AM", InvoiceStop: "9:57 AM", TransportMode: "Keke", PickupTime: "10:00 AM",
		LogisticsStatus: "Ontime", ColdRoomArrival: "10:25 AM", TransportStatus: "Good", WashingPersonnel: 2,
		WashingStart: "10:30 AM", WashingEnd: "10:55 AM", BlastFreezerTime: "11:10 AM",
		Comments: "Excellent timing throughout",
	},
	{
		Date: day(18), Officer: "Simon Agbosua", Location: "Agege Processing Hub", Birds: 1000, SlaughterMen: 5,
		SlaughterStart: "5:30 AM", SlaughterEnd: "9:00 AM", WeighingStart: "9:15 AM", WeighingStop: "9:28 AM",
		InvoiceStart: "9:30 AM", InvoiceStop: "9:43 AM", TransportMode: "Commercial Bus", PickupTime: "9:50 AM",
		LogisticsStatus: "Very Delayed", ColdRoomArrival: "11:00 AM", TransportStatus: "Bad", WashingPersonnel: 4,
		WashingStart: "11:10 AM", WashingEnd: "12:05 PM", BlastFreezerTime: "12:20 PM",
		Comments: "High volume caused delays, need more personnel",
	},
	{
		Date: day(19), Officer: "Friday Shehu", Location: "Oshodi Center", Birds: 600, SlaughterMen: 3,
		SlaughterStart: "6:45 AM", SlaughterEnd: "8:30 AM", WeighingStart: "8:35 AM", WeighingStop: "8:41 AM",
		InvoiceStart: "8:42 AM", InvoiceStop: "8:48 AM", TransportMode: "Pullus Bus", PickupTime: "8:50 AM",
		LogisticsStatus: "Early", ColdRoomArrival: "9:20 AM", TransportStatus: "Good", WashingPersonnel: 3,
		WashingStart: "9:25 AM", WashingEnd: "9:58 AM", BlastFreezerTime: "10:10 AM",
		Comments: "Good performance overall",
	},
}

var DemoBlastRecords = []BlastRecord{
	{Date: day(15), ArrivalTime: "9:15 AM", BlastStart: "9:30 AM", BlastEnd: "2:30 PM", Qty: 500, TargetTemperature: -20, ActualTemperature: -19},
	{Date: day(16), ArrivalTime: "10:45 AM", BlastStart: "11:00 AM", BlastEnd: "4:30 PM", Qty: 750, TargetTemperature: -20, ActualTemperature: -21},
	{Date: day(17), ArrivalTime: "10:25 AM", BlastStart: "10:40 AM", BlastEnd: "3:40 PM", Qty: 300, TargetTemperature: -20, ActualTemperature: -20},
}
