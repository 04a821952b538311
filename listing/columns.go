package listing

// Kind decides how a column reads its source value and what it falls back to
// when the value is absent or null.
type Kind int

const (
	Nullable Kind = iota // raw value or null
	Text                 // raw value or ""
	Zero                 // raw value or 0
	Currency             // raw value or "USD"
	Object               // compound value or {}, serialized to JSON text at the sink
	Array                // compound value or [], serialized to JSON text at the sink
	LotSize              // lotSizeWithUnit normalised to square feet
	Constant             // always Column.Value
)

const (
	DefaultCurrency   = "USD"
	LotSizeUnit       = "squareFeet"
	SquareFeetPerAcre = 43560
)

// Column is one entry of the row mapping: the target column name, the path
// of keys into the raw listing and the kind that governs defaulting.
type Column struct {
	Name  string
	Path  []string
	Kind  Kind
	Value any
}

func col(name string, kind Kind, path ...string) Column {
	return Column{Name: name, Path: path, Kind: kind}
}

// Columns is the fixed column set of the target table, in insert order.
var Columns = []Column{
	col("zpid", Nullable, "zpid"),
	col("_type", Nullable, "propertyType"),
	col("latitude", Nullable, "location", "latitude"),
	col("longitude", Nullable, "location", "longitude"),
	col("street_address", Text, "address", "streetAddress"),
	col("zipcode", Text, "address", "zipcode"),
	col("city", Text, "address", "city"),
	col("state", Text, "address", "state"),
	col("media", Object, "media", "propertyPhotoLinks"),
	col("currency", Currency, "currency"),
	col("country", Text, "country"),
	col("listing_datetime_on_zillow", Nullable, "listingDateTimeOnZillow"),
	col("best_guess_time_zone", Text, "bestGuessTimeZone"),
	col("last_sold_date", Nullable, "lastSoldDate"),
	col("bathrooms", Nullable, "bathrooms"),
	col("bedrooms", Nullable, "bedrooms"),
	col("living_area", Nullable, "livingArea"),
	col("year_built", Nullable, "yearBuilt"),
	col("lot_size", LotSize, "lotSizeWithUnit"),
	{Name: "lot_size_unit", Kind: Constant, Value: LotSizeUnit},
	col("property_type", Text, "propertyType"),
	col("listing_status", Text, "listing", "listingStatus"),
	col("provider_listing_id", Text, "listing", "providerListingID"),
	col("days_on_zillow", Nullable, "daysOnZillow"),
	col("price_value", Nullable, "price", "value"),
	col("price_per_square_foot", Nullable, "price", "pricePerSquareFoot"),
	col("zestimate", Nullable, "estimates", "zestimate"),
	col("rent_zestimate", Nullable, "estimates", "rentZestimate"),
	col("tax_assessment_value", Nullable, "taxAssessment", "value"),
	col("tax_assessment_year", Nullable, "taxAssessment", "year"),
	col("ssid", Nullable, "ssid"),
	col("listing_data_source", Text, "listingDataSource"),
	col("home_status", Text, "homeStatus"),
	col("region_string", Text, "regionString"),
	col("url", Text, "url"),
	col("zestimate_low_percent", Text, "zestimateLowPercent"),
	col("zestimate_high_percent", Text, "zestimateHighPercent"),
	col("restimate_low_percent", Text, "restimateLowPercent"),
	col("restimate_high_percent", Text, "restimateHighPercent"),
	col("parent_region_name", Text, "parentRegion", "name"),
	col("county_fips", Text, "countyFIPS"),
	col("parcel_id", Text, "parcelId"),
	col("page_view_count", Zero, "pageViewCount"),
	col("favorite_count", Zero, "favoriteCount"),
	col("total_monthly_cost", Zero, "affordabilityEstimate", "totalMonthlyCost"),
	col("brokerage_name", Text, "brokerageName"),
	col("fifteen_year_fixed_rate", Zero, "mortgageRates", "fifteenYearFixedRate"),
	col("thirty_year_fixed_rate", Zero, "mortgageRates", "thirtyYearFixedRate"),
	col("arm5_rate", Zero, "mortgageRates", "arm5Rate"),
	col("property_tax_rate", Zero, "propertyTaxRate"),
	col("mlsid", Text, "mlsid"),
	col("virtual_tour_url", Text, "virtualTourUrl"),
	col("photo_count", Zero, "photoCount"),
	col("living_area_units", Text, "livingAreaUnits"),
	col("posting_product_type", Text, "postingProductType"),
	col("city_id", Zero, "cityId"),
	col("state_id", Zero, "stateId"),
	col("zip_plus_four", Text, "zipPlusFour"),
	col("date_posted_string", Text, "datePostedString"),
	col("posting_url", Text, "postingUrl"),
	col("last_sold_price", Zero, "lastSoldPrice"),
	col("county", Text, "county"),
	col("rental_applications_accepted_type", Text, "rentalApplicationsAcceptedType"),
	col("attribution_info", Object, "attributionInfo"),
	col("photos", Array, "photos"),
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c.Name] = i
	}
	return m
}()

// ColumnNames returns the column names in insert order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
