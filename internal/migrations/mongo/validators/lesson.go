package validators

import "go.mongodb.org/mongo-driver/bson"

var LessonValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"teacher_id",
			"title",
			"kind",
			"duration_min",
			"price_cents",
			"active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"teacher_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"individual",
					"group_course",
				},
			},

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
			},

			"total_sessions": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"price_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
