package store

const sampleNDJSON = `{"id":"NK-001","caption":"Michael Smith","schema":"Person","properties":{"nationality":["ru"],"birthDate":["1970-01-01"],"gender":["male"],"alias":["Misha Smith","Smith, Michael"],"position":["Director"],"topics":["sanction"],"notes":["Listed under EO 13660"],"programId":["UKR-EO13660"]},"datasets":["us_ofac_sdn"],"first_seen":"2014-03-20T00:00:00"}
{"id":"NK-002","caption":"Michaela Ivanova","schema":"Person","properties":{"nationality":["ua","ru"]}}
not json at all
{"id":"NK-003","caption":"Acme Holdings","schema":"Company","properties":{"country":["by"]}}
{"id":"NK-004","caption":"John Michael Doe","schema":"Person","properties":{"nationality":"{ru,kz}"}}
{"id":"","caption":"No Id","schema":"Person"}
{"id":"NK-001","caption":"Duplicate Michael","schema":"Person"}
{"id":"NK-005","caption":"Olga 100%_Sure","schema":"Person","properties":{"nationality":["us"]}}
`
