/*

Package reporter forwards load-test results to an InfluxDB-compatible
endpoint using the JMeter backend-listener line schema.

The host engine pushes one aggregated Record per completed time window and
polls Tick periodically; the uploader batches pending records and delivers
them as a single text/plain POST once the send interval has elapsed.
Delivery is best effort: a failed batch is retried once after a short
pause and then dropped, so telemetry problems never disturb the test run.

Example

The following buffers one window and flushes it at shutdown:

	uploader, err := reporter.NewUploader(context.Background(), reporter.Config{
		URL:         "http://influx:8086/write?db=load",
		Application: "checkout",
		Measurement: "jmeter",
	})
	if err != nil {
		log.Fatal(err)
	}

	uploader.NotifyStart()
	uploader.OnWindowComplete(reporter.Record{
		Label:           "Login",
		Timestamp:       time.Now().Unix(),
		SampleCount:     5,
		AvgResponseTime: 0.2,
		Concurrency:     3,
		ByteCount:       1000,
	})
	uploader.Tick(time.Now())
	uploader.FlushAll()
	uploader.NotifyEnd()

*/
package reporter
