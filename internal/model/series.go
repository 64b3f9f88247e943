package model

import "time"

// Carrier is an energy carrier flowing through the hub.
type Carrier string

const (
	CarrierGas  Carrier = "gas"
	CarrierElec Carrier = "elec"
	CarrierHeat Carrier = "heat"
	CarrierCool Carrier = "cool"
)

// Carriers lists every carrier in balance order.
var Carriers = []Carrier{CarrierGas, CarrierElec, CarrierHeat, CarrierCool}

// CarrierInfo holds display name and unit for a carrier.
type CarrierInfo struct {
	Name string
	Unit string
}

// CarrierCatalog maps every known Carrier to its display name and unit.
var CarrierCatalog = map[Carrier]CarrierInfo{
	CarrierGas:  {Name: "Gas", Unit: "MW"},
	CarrierElec: {Name: "Elec", Unit: "MW"},
	CarrierHeat: {Name: "Heat", Unit: "MW"},
	CarrierCool: {Name: "Cool", Unit: "MW"},
}

// Valid reports whether c is one of the known carriers.
func (c Carrier) Valid() bool {
	_, ok := CarrierCatalog[c]
	return ok
}

// Series identifies a column of the hourly input table.
type Series string

const (
	SeriesElecLoad  Series = "elec_load(MW)"
	SeriesHeatLoad  Series = "heating_load(MW)"
	SeriesCoolLoad  Series = "cooling_load(MW)"
	SeriesGasPrice  Series = "gas_price(HKD/m^3)"
	SeriesElecPrice Series = "elec_price(HKD/MWh)"
)

// RequiredSeries are the columns every input table must provide.
var RequiredSeries = []Series{
	SeriesElecLoad,
	SeriesHeatLoad,
	SeriesCoolLoad,
	SeriesGasPrice,
	SeriesElecPrice,
}

// SeriesInfo holds display name and unit for a series.
type SeriesInfo struct {
	Name string
	Unit string
}

// SeriesCatalog maps every known Series to its display name and unit.
var SeriesCatalog = map[Series]SeriesInfo{
	SeriesElecLoad:  {Name: "Electrical Load", Unit: "MW"},
	SeriesHeatLoad:  {Name: "Heating Load", Unit: "MW"},
	SeriesCoolLoad:  {Name: "Cooling Load", Unit: "MW"},
	SeriesGasPrice:  {Name: "Gas Price", Unit: "HKD/m^3"},
	SeriesElecPrice: {Name: "Electricity Price", Unit: "HKD/MWh"},
}

type Reading struct {
	Timestamp time.Time
	Series    Series
	Value     float64
	Unit      string
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}
