package document

import (
	"sort"

	"github.com/mapeditor/mapeditor/internal/typeid"
)

// PopupType is a category of point of interest with its marker icon.
type PopupType struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

const (
	blips        = "https://docs.fivem.net/blips/"
	backendBlips = "https://docs-backend.fivem.net/blips/"
	gangBlips    = "https://gtaundergroundmod.com/resources/media/blips/"
)

// PopupTypes is the built-in category catalog, keyed by type key.
var PopupTypes = map[string]PopupType{
	"Clothes":          {Label: "Магазин одежды", Icon: blips + "radar_clothes_store.png"},
	"Store":            {Label: "Магазин продуктов", Icon: blips + "radar_heist.png"},
	"House":            {Label: "Жилой дом", Icon: blips + "radar_safehouse.png"},
	"HouseGarage":      {Label: "Жилой дом с гаражом или парковочным местом", Icon: backendBlips + "radar_biker_clubhouse.png"},
	"Apartments":       {Label: "Многоквартирный дом", Icon: backendBlips + "radar_office.png"},
	"ApartmentsGarage": {Label: "Многоквартирный дом с парковочным местом", Icon: "apartmentsGarage.png"},
	"Hotel":            {Label: "Отель", Icon: backendBlips + "radar_level_inside.png"},
	"Church":           {Label: "Церковь", Icon: blips + "radar_horde.png"},
	"Gunshop":          {Label: "Магазин оружия", Icon: backendBlips + "radar_shootingrange_gunshop.png"},
	"WeaponMachine":    {Label: "Автомат с оружием", Icon: backendBlips + "radar_gun_shop.png"},
	"Weed":             {Label: "Автомат с травой", Icon: backendBlips + "radar_weed_stash.png"},
	"Garage":           {Label: "Тюнинг-салон", Icon: backendBlips + "radar_bennys.png"},
	"Parking":          {Label: "Парковка", Icon: backendBlips + "radar_property.png"},
	"Energy":           {Label: "Автомат с энергетиком", Icon: backendBlips + "radar_boost.png"},
	"Melee":            {Label: "Автомат с холодным оружием", Icon: "radar_weapon_bat.png"},
	"Bio":              {Label: "Автомат с инъекциями", Icon: blips + "radar_testosterone.png"},
	"Barber":           {Label: "Парикмахерская", Icon: backendBlips + "radar_barber.png"},
	"SMI":              {Label: "СМИ", Icon: backendBlips + "radar_reg_papers.png"},
	"Station":          {Label: "Станция монорельса", Icon: backendBlips + "radar_train.png"},
	"MafiaItaly":       {Label: "Итальянская мафия", Icon: gangBlips + "radar_gangS2.png"},
	"Billboard":        {Label: "Билборд", Icon: blips + "radar_golf_flag.png"},
	"Club":             {Label: "Клуб", Icon: blips + "radar_bat_club_property.png"},
	"Arcade":           {Label: "Игровой клуб", Icon: blips + "radar_arcade.png"},
	"Casino":           {Label: "Казино", Icon: blips + "radar_casino_table_games.png"},
	"Restaurant":       {Label: "Ресторан", Icon: "restaurant.png"},
	"Police":           {Label: "Полицейский участок", Icon: blips + "radar_police_station.png"},
	"Bar":              {Label: "Бар", Icon: blips + "radar_bar.png"},
	"PNS":              {Label: "Сервис покраски авто", Icon: blips + "radar_car_mod_shop.png"},
	"DrugStore":        {Label: "Аптека", Icon: backendBlips + "radar_crim_drugs.png"},
	"Mexican":          {Label: "Мексиканская группировка", Icon: gangBlips + "radar_gangY.png"},
	"Airport":          {Label: "Аэропорт", Icon: blips + "radar_flight_school.png"},
	"Food":             {Label: "Фастфуд", Icon: blips + "radar_pizza_this.png"},
	"WeedStore":        {Label: "Магазин травы", Icon: backendBlips + "radar_weed_stash.png"},
	"Hospital":         {Label: "Госпиталь", Icon: blips + "radar_hospital.png"},
}

// PopupTypeList returns the catalog sorted by key.
func PopupTypeList() []PopupType {
	out := make([]PopupType, 0, len(PopupTypes))
	for key, t := range PopupTypes {
		t.Key = key
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

var sampleOrganizations = []struct{ name, kind string }{
	{"CAP", "Clothes"},
	{"Soap & Rope", "Store"},
	{"Частный жилой дом", "House"},
	{"Многоквартирный дом", "Apartments"},
	{"Отель Balls", "Hotel"},
	{"Отель Spiral", "Hotel"},
	{"Церковь", "Church"},
	{"Ganja Shot", "Weed"},
	{"Biotrans salon", "Clothes"},
	{"Service", "Garage"},
	{"Parking", "Parking"},
	{"Booh-Lo", "Energy"},
	{"Melee weapons", "Melee"},
	{"Style Machine", "Clothes"},
	{"Barber Machine", "Barber"},
	{"Biotrans injection", "Bio"},
	{"Me TV News", "SMI"},
	{"Ammu-Nation", "Gunshop"},
	{"WEAPONS", "WeaponMachine"},
	{`Станция "Конополис"`, "Station"},
	{"Отель Oasis", "Hotel"},
	{"Итальянская Мафия", "MafiaItaly"},
	{"Билборд", "Billboard"},
	{"Клуб Malibu", "Club"},
	{"Avengers", "Casino"},
	{"Retro Games", "Arcade"},
	{"Karaoke Night", "Club"},
	{"The Mexican Restaurant", "Restaurant"},
	{"Policia Nacional radarotama", "Police"},
	{"Barbero", "Barber"},
	{"Sombrero tequila club", "Bar"},
	{`Church "HolyCow"`, "Church"},
	{"Bueno Market", "Store"},
	{"Pay'n'Spray", "PNS"},
	{"Lolita's market", "Store"},
	{"Total Overdose", "DrugStore"},
	{"Мексиканцы", "Mexican"},
	{"Аэропорт Alien City", "Airport"},
	{"McMonster's", "Food"},
	{"Good Stuff", "WeedStore"},
	{"Drug Store", "DrugStore"},
	{"Alien City Medical Center", "Hospital"},
	{`Станция "Алиен Сити"`, "Station"},
}

// SampleOrganizations returns the seed organization catalog with fresh ids.
func SampleOrganizations() []Organization {
	out := make([]Organization, 0, len(sampleOrganizations))
	for _, s := range sampleOrganizations {
		t := PopupTypes[s.kind]
		out = append(out, Organization{
			ID:   typeid.NewOrganizationID(),
			Name: s.name,
			Type: s.kind,
			Icon: t.Icon,
		})
	}
	return out
}
