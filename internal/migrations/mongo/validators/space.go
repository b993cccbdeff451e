package validators

import "go.mongodb.org/mongo-driver/bson"

var SpaceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"category",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"label": bson.M{
				"bsonType":  "string",
				"maxLength": 120,
			},

			"category": bson.M{
				"bsonType": "string",
				"enum": []string{
					"normal",
					"accessible",
					"electric",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"free",
					"occupied",
					"maintenance",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
