package seeders

import "maintenance-service/internal/entities"

// demoEquipments - стартовый набор оборудования для стенда.
var demoEquipments = []entities.Equipment{
	{Description: "Компрессор винтовой", LocationID: 1, Serial: "CMP-0001", Model: "GA-30"},
	{Description: "Компрессор винтовой", LocationID: 1, Serial: "CMP-0002", Model: "GA-37"},
	{Description: "Токарный станок", LocationID: 2, Serial: "LTH-1040", Model: "16К20"},
	{Description: "Фрезерный станок", LocationID: 2, Serial: "MIL-0675", Model: "6Р12"},
	{Description: "Погрузчик электрический", LocationID: 3, Serial: "FLT-2201", Model: "EFG 216"},
	{Description: "Дизель-генератор", LocationID: 3, Serial: "GEN-0500", Model: "AD-100"},
}
