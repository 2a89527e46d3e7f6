/*
Package dbprobe measures how long a database takes to answer a query, and
captures diagnostics from the server when an answer is slow.

A probe runs a configured statement over a single connection a number of
times, or until stopped, logging the duration of every execution and the
average at the end. When one execution takes longer than the diagnostic
threshold, a battery of introspection queries for the database engine is
run on the same connection and each result set is logged. For MySQL that is
SHOW ENGINE INNODB STATUS, SHOW FULL PROCESSLIST, the open tables in use and
the slow query log.

Configuration is a Java-style properties file:

	CONNECTION.URL=jdbc:mysql://db.internal:3306/orders
	CONNECTION.USERNAME=probe
	CONNECTION.PASSWORD=secret
	CONNECTION.DRIVERCLASS=com.mysql.cj.jdbc.Driver
	CONNECTION.JDBCDRIVER=/opt/drivers/mysql-connector.jar
	SQL.QUERYTOEXECUTE=SELECT count(*) FROM orders
	SQL.ITERATIONS=-1
	DIAGNOSTIC.THRESHOLD=250
	RUN.THREADSLEEPTIME=1000

SQL.ITERATIONS=-1 runs until the process is interrupted. Drivers are linked
into the binary: mysql, postgres, pgx and sqlite3, also accepted under their
JDBC class names. When a query fails the connection is closed and, unless
RUN.RECONNECT=true, stays closed for the rest of the run.

Example:

	cfg, err := dbprobe.LoadConfig("config.properties")
	if err != nil {
		log.Fatal(err)
	}

	p := dbprobe.NewProbe(ctx, cfg, "probe-eu1", 10)
	http.Handle("/", p.Handler()) // /health, /status, /metrics

	summary, err := p.Run(ctx)

Runtime settings come from the environment:

	DBPROBE_CONFIG=./config.properties
	DBPROBE_STATUS_ADDR=:8080
	DBPROBE_IDENTITY=probe-eu1
	DBPROBE_ROLLING_SIZE=10
	DBPROBE_DEBUG=false
*/
package dbprobe
