package handlers

const (
	testTenantID        = "0b6f3c1e-5d2a-4f7e-9c41-2a8e6b1d7f01"
	testOtherTenantID   = "0b6f3c1e-5d2a-4f7e-9c41-2a8e6b1d7f02"
	testLandlordID      = "5c9a1e27-8b3d-4e6f-a152-7d4c0e9b3a11"
	testOtherLandlordID = "5c9a1e27-8b3d-4e6f-a152-7d4c0e9b3a12"
	testUserID          = "9e2d4b6a-1c3f-4a5e-8b7d-0f1e2d3c4b21"
	testSecondUserID    = "9e2d4b6a-1c3f-4a5e-8b7d-0f1e2d3c4b22"
	testThirdUserID     = "9e2d4b6a-1c3f-4a5e-8b7d-0f1e2d3c4b23"
	testStrangerID      = "9e2d4b6a-1c3f-4a5e-8b7d-0f1e2d3c4b24"
	testOccupancyID     = "3a7f9c2d-6e1b-4d8a-b5c3-9f0e1a2b3c31"
	testPaymentID       = "7d1e3f5a-9b2c-4e6d-8a0f-1b2c3d4e5f41"
	testPropertyID      = "e4b8d2f6-0a1c-4b3e-9d5f-7a8b9c0d1e51"
	testMissingID       = "f0f0f0f0-0000-4000-8000-000000000099"
	testOtherPropertyID = "e4b8d2f6-0a1c-4b3e-9d5f-7a8b9c0d1e52"
	testUnitID          = "c1d3e5f7-2b4a-4c6e-8f0a-3b5d7f9a1c61"
	testReviewID        = "a8c0e2f4-6b8d-4a0c-9e2f-4b6d8f0a2c71"
)
