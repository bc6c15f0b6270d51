package telemetry

// InitialSnapshot returns the seeded state a simulator starts from.
func InitialSnapshot(vehicleID string) MetricsSnapshot {
	return MetricsSnapshot{
		VehicleID:    vehicleID,
		EngineHealth: 85,
		FuelLevel:    92,
		EngineTemp:   24.5,
		BatteryLevel: 92,
		TirePressure: 65,
		NextService:  12000,
		Performance: []PerformancePoint{
			{Label: "00:00", Value: 30},
			{Label: "04:00", Value: 45},
			{Label: "08:00", Value: 65},
			{Label: "12:00", Value: 85},
			{Label: "16:00", Value: 70},
			{Label: "20:00", Value: 55},
			{Label: "24:00", Value: 40},
		},
		SystemHealth: []SubsystemHealth{
			{Subject: "Engine", Value: 85, Max: 100},
			{Subject: "Transmission", Value: 90, Max: 100},
			{Subject: "Suspension", Value: 75, Max: 100},
			{Subject: "Brakes", Value: 95, Max: 100},
			{Subject: "Electrical", Value: 88, Max: 100},
		},
		Maintenance: []MaintenanceItem{
			{Label: "Oil", Value: 85},
			{Label: "Brakes", Value: 65},
			{Label: "Filters", Value: 90},
			{Label: "Tires", Value: 75},
		},
		StatusUpdates: []StatusEvent{
			{ID: 1, Message: "All systems operational", Severity: SeverityInfo, Timestamp: "13:10"},
			{ID: 2, Message: "Tire pressure slightly low", Severity: SeverityWarning, Timestamp: "13:05"},
			{ID: 3, Message: "Oil change due in 500 miles", Severity: SeverityInfo, Timestamp: "12:55"},
		},
	}
}
